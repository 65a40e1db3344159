package typesystem

import (
	"testing"

	"github.com/funvibe/typer/internal/config"
)

type testRef struct {
	id   int
	name string
}

func (r *testRef) DesignatorID() int { return r.id }
func (r *testRef) FullName() string  { return r.name }

type testClass struct {
	params  []TParam
	parents []Type
}

type testResolver struct {
	classes map[int]testClass
	bounds  map[int][2]Type
}

func (r *testResolver) ClassParents(ref Designator) []Type {
	return r.classes[ref.DesignatorID()].parents
}

func (r *testResolver) ClassTypeParams(ref Designator) []TParam {
	return r.classes[ref.DesignatorID()].params
}

func (r *testResolver) ParamBounds(ref Designator) (Type, Type) {
	b := r.bounds[ref.DesignatorID()]
	return b[0], b[1]
}

// hierarchy: Animal <- Dog; Box[T] (invariant), Seq[+A] <- List[+A]
type fixture struct {
	env          *Env
	animal, dog  TCon
	box, seq, ls TCon
	boxT, seqA   TParam
	listA        TParam
}

func newFixture() *fixture {
	f := &fixture{}
	f.animal = TCon{Name: "Animal", Ref: &testRef{1, "Animal"}}
	f.dog = TCon{Name: "Dog", Ref: &testRef{2, "Dog"}}
	f.box = TCon{Name: "Box", Ref: &testRef{3, "Box"}}
	f.seq = TCon{Name: "Seq", Ref: &testRef{4, "Seq"}}
	f.ls = TCon{Name: "List", Ref: &testRef{5, "List"}}
	f.boxT = TParam{Name: "T", Ref: &testRef{10, "Box.T"}, Variance: Invariant}
	f.seqA = TParam{Name: "A", Ref: &testRef{11, "Seq.A"}, Variance: Covariant}
	f.listA = TParam{Name: "A", Ref: &testRef{12, "List.A"}, Variance: Covariant}
	res := &testResolver{
		classes: map[int]testClass{
			2: {parents: []Type{f.animal}},
			3: {params: []TParam{f.boxT}},
			4: {params: []TParam{f.seqA}},
			5: {params: []TParam{f.listA}, parents: []Type{TApp{Constructor: f.seq, Args: []Type{f.listA}}}},
		},
		bounds: map[int][2]Type{},
	}
	f.env = &Env{Resolver: res, Constraints: NewConstraints(), Gadt: NewGadtConstraint()}
	return f
}

func TestSubtypeBasics(t *testing.T) {
	f := newFixture()
	intT := Builtin("Int")
	tests := []struct {
		name string
		sub  Type
		sup  Type
		want bool
	}{
		{"reflexive", f.dog, f.dog, true},
		{"class parent", f.dog, f.animal, true},
		{"not child", f.animal, f.dog, false},
		{"nothing bottom", Builtin("Nothing"), f.dog, true},
		{"any top", f.dog, Builtin("Any"), true},
		{"literal widens", TConst{Value: IntConst(1), Underlying: intT}, intT, true},
		{"type is not literal", intT, TConst{Value: IntConst(1), Underlying: intT}, false},
		{"union left", TUnion{Types: []Type{f.dog, f.animal}}, f.animal, true},
		{"union right", f.dog, TUnion{Types: []Type{intT, f.animal}}, true},
		{"intersection left", TAnd{Types: []Type{intT, f.dog}}, f.animal, true},
		{"error conforms", TError{}, f.dog, true},
		{"covariant args", TApp{Constructor: f.ls, Args: []Type{f.dog}}, TApp{Constructor: f.seq, Args: []Type{f.animal}}, true},
		{"invariant args", TApp{Constructor: f.box, Args: []Type{f.dog}}, TApp{Constructor: f.box, Args: []Type{f.animal}}, false},
		{"wildcard arg", TApp{Constructor: f.box, Args: []Type{f.dog}}, TApp{Constructor: f.box, Args: []Type{TWildcard{}}}, true},
		{"function variance", TFunc{Params: []Type{f.animal}, ReturnType: f.dog}, TFunc{Params: []Type{f.dog}, ReturnType: f.animal}, true},
		{"function contravariance", TFunc{Params: []Type{f.dog}, ReturnType: f.dog}, TFunc{Params: []Type{f.animal}, ReturnType: f.dog}, false},
		{"null to ref", Builtin("Null"), f.dog, true},
		{"by-name result", TExpr{ReturnType: f.dog}, f.animal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.env.IsSubtype(tt.sub, tt.sup); got != tt.want {
				t.Errorf("%s <: %s = %v, want %v", tt.sub, tt.sup, got, tt.want)
			}
		})
	}
}

func TestTypeVariableBounds(t *testing.T) {
	f := newFixture()
	v := f.env.Constraints.Fresh("A")

	if !f.env.IsSubtype(f.dog, v) {
		t.Fatalf("Dog <: ?A should record a lower bound")
	}
	if !f.env.IsSubtype(v, f.animal) {
		t.Fatalf("?A <: Animal should be consistent with lower bound Dog")
	}
	b := f.env.Constraints.Bounds(v)
	if !Equal(b.Lo, f.dog) || !Equal(b.Hi, f.animal) {
		t.Errorf("bounds = [%v, %v], want [Dog, Animal]", b.Lo, b.Hi)
	}
	if f.env.IsSubtype(v, Builtin("Int")) {
		t.Errorf("?A <: Int must fail with lower bound Dog")
	}
}

func TestConformsLeavesConstraintsUntouched(t *testing.T) {
	f := newFixture()
	v := f.env.Constraints.Fresh("A")
	before := f.env.Constraints.Version()

	if !f.env.Conforms(f.dog, v) {
		t.Fatalf("Dog should conform to ?A")
	}
	if f.env.Constraints.Version() != before {
		t.Errorf("check modified constraints")
	}
	if b := f.env.Constraints.Bounds(v); b.Lo != nil {
		t.Errorf("check leaked lower bound %v", b.Lo)
	}
}

func TestJoinAndWiden(t *testing.T) {
	f := newFixture()
	intT, strT := Builtin("Int"), Builtin("String")

	if got := f.env.Join(f.dog, f.animal); !Equal(got, f.animal) {
		t.Errorf("Join(Dog, Animal) = %v", got)
	}
	got := f.env.Join(Widen(TConst{Value: IntConst(1), Underlying: intT}), strT)
	want := TUnion{Types: []Type{intT, strT}}
	if !Equal(got, want) {
		t.Errorf("Join(Int, String) = %v, want %v", got, want)
	}
	if got := f.env.JoinAll(nil); !IsNothing(got) {
		t.Errorf("JoinAll() = %v, want Nothing", got)
	}
	if got := f.env.Meet(f.dog, f.animal); !Equal(got, f.dog) {
		t.Errorf("Meet(Dog, Animal) = %v", got)
	}
}

func TestBaseType(t *testing.T) {
	f := newFixture()
	list := TApp{Constructor: f.ls, Args: []Type{f.dog}}
	got := f.env.BaseType(list, f.seq)
	want := TApp{Constructor: f.seq, Args: []Type{f.dog}}
	if !Equal(got, want) {
		t.Errorf("BaseType(List[Dog], Seq) = %v, want %v", got, want)
	}
	if f.env.BaseType(f.dog, f.seq) != nil {
		t.Errorf("Dog has no Seq base type")
	}
}

func TestOccurrenceVariance(t *testing.T) {
	f := newFixture()
	methodT := TParam{Name: "T", Ref: &testRef{20, "f.T"}}
	key := methodT.Key()
	tests := []struct {
		name string
		tp   Type
		want Variance
	}{
		{"absent", f.dog, Bivariant},
		{"bare", methodT, Covariant},
		{"covariant class", TApp{Constructor: f.seq, Args: []Type{methodT}}, Covariant},
		{"invariant class", TApp{Constructor: f.box, Args: []Type{methodT}}, Invariant},
		{"function param", TFunc{Params: []Type{methodT}, ReturnType: f.dog}, Contravariant},
		{"both sides", TFunc{Params: []Type{methodT}, ReturnType: methodT}, Invariant},
	}
	for _, tt := range tests {
		if got := f.env.OccurrenceVariance(tt.tp, key); got != tt.want {
			t.Errorf("%s: OccurrenceVariance(%v) = %v, want %v", tt.name, tt.tp, got, tt.want)
		}
	}
}

func TestGadtNarrowingAndRestore(t *testing.T) {
	f := newFixture()
	methodT := TParam{Name: "T", Ref: &testRef{20, "f.T"}}
	intT := Builtin("Int")
	boxOfT := TApp{Constructor: f.box, Args: []Type{methodT}}
	boxOfInt := TApp{Constructor: f.box, Args: []Type{intT}}

	snap := f.env.Gadt.Snapshot()
	f.env.Gadt.AddNarrowable(methodT)
	prev := f.env.Gadt.SetRecording(true)
	if !f.env.IsSubtype(boxOfInt, boxOfT) {
		t.Fatalf("Box[Int] should constrain T")
	}
	f.env.Gadt.SetRecording(prev)

	if !f.env.IsSubtype(TConst{Value: IntConst(1), Underlying: intT}, methodT) {
		t.Errorf("1 should conform to narrowed T")
	}
	f.env.Gadt.Restore(snap)

	if _, _, ok := f.env.Gadt.Bounds(methodT); ok {
		t.Errorf("bounds survived restore")
	}
	if f.env.IsSubtype(intT, methodT) {
		t.Errorf("Int must not conform to unnarrowed T")
	}
}

func TestConstantConversion(t *testing.T) {
	tests := []struct {
		c      Constant
		target string
		ok     bool
	}{
		{IntConst(1), "Long", true},
		{IntConst(1), "Double", true},
		{IntConst(100), "Byte", true},
		{IntConst(1000), "Byte", false},
		{LongConst(1), "Int", false},
		{DoubleConst(1.5), "Int", false},
		{StringConst("x"), "Int", false},
	}
	for _, tt := range tests {
		got, ok := tt.c.ConvertTo(tt.target)
		if ok != tt.ok {
			t.Errorf("%v.ConvertTo(%s) ok = %v, want %v", tt.c, tt.target, ok, tt.ok)
		}
		if ok && got.TypeName() != tt.target {
			t.Errorf("%v.ConvertTo(%s) = %v", tt.c, tt.target, got.TypeName())
		}
	}
}

func TestNormalizeUnion(t *testing.T) {
	intT, strT := Builtin("Int"), Builtin("String")
	got := NormalizeUnion([]Type{intT, TUnion{Types: []Type{strT, intT}}})
	u, ok := got.(TUnion)
	if !ok || len(u.Types) != 2 {
		t.Fatalf("NormalizeUnion = %v", got)
	}
	if got := NormalizeUnion([]Type{intT, intT}); !Equal(got, intT) {
		t.Errorf("single member union = %v", got)
	}
}

func TestTVarString(t *testing.T) {
	tests := []struct {
		v        TVar
		testMode bool
		want     string
	}{
		{TVar{ID: 3, Origin: "A"}, false, "?A3"},
		{TVar{ID: 4}, false, "?4"},
		{TVar{ID: 3, Origin: "A"}, true, "?"},
		{TVar{ID: 4}, true, "?"},
	}
	t.Cleanup(func() { config.IsTestMode = false })
	for _, tt := range tests {
		config.IsTestMode = tt.testMode
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%#v (test mode %v) = %q, want %q", tt.v, tt.testMode, got, tt.want)
		}
	}
}
