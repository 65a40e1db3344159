package symbols

import (
	"testing"

	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

func TestPreludeClasses(t *testing.T) {
	table := NewTable()

	intSym := table.Builtin("Int")
	if intSym == nil {
		t.Fatalf("Int missing from prelude")
	}
	if got := intSym.FullName(); got != "lang.Int" {
		t.Errorf("FullName = %q, want lang.Int", got)
	}
	env := &typesystem.Env{Resolver: table, Constraints: typesystem.NewConstraints()}
	if !env.IsSubtype(table.BuiltinType("Int"), table.BuiltinType("AnyVal")) {
		t.Errorf("Int should conform to AnyVal")
	}
	if !env.IsSubtype(table.BuiltinType("String"), table.BuiltinType("AnyRef")) {
		t.Errorf("String should conform to AnyRef")
	}
	if env.IsSubtype(table.BuiltinType("Null"), table.BuiltinType("Int")) {
		t.Errorf("Null must not conform to a value class")
	}
	if !env.IsSubtype(table.BuiltinType("Null"), table.BuiltinType("String")) {
		t.Errorf("Null should conform to String")
	}
	// builtin references made without a table resolve to the same classes
	if !env.IsSubtype(typesystem.Builtin("Int"), table.BuiltinType("Any")) {
		t.Errorf("typesystem.Builtin(Int) should conform to Any")
	}
}

func TestMemberOverloadsAndInheritance(t *testing.T) {
	table := NewTable()
	env := &typesystem.Env{Resolver: table, Constraints: typesystem.NewConstraints()}

	plus := table.Member(env, table.BuiltinType("Int"), TermName("+"))
	if len(plus.Alts) != 3 {
		t.Fatalf("Int.+ has %d alternatives, want 3", len(plus.Alts))
	}
	if !plus.IsOverloaded() {
		t.Errorf("Int.+ should be overloaded")
	}
	eq := table.Member(env, table.BuiltinType("Int"), TermName("=="))
	if len(eq.Alts) != 4 {
		t.Errorf("Int.== has %d alternatives, want 3 own + 1 inherited", len(eq.Alts))
	}
	toString := table.Member(env, table.BuiltinType("String"), TermName("toString"))
	if !toString.Exists() || toString.IsOverloaded() {
		t.Errorf("String.toString should be inherited once, got %d", len(toString.Alts))
	}
	if table.Member(env, table.BuiltinType("Int"), TermName("length")).Exists() {
		t.Errorf("Int has no length member")
	}
}

func TestMemberAsSeenFrom(t *testing.T) {
	table := NewTable()
	env := &typesystem.Env{Resolver: table, Constraints: typesystem.NewConstraints()}
	pkg := table.EnterPackage([]string{"demo"})

	box := table.Enter(TypeName("Box"), ClassSymbol, 0, pkg, "a", token.Position{})
	tp := table.NewSymbol(TypeName("T"), TypeParamSymbol, 0, box, "a", token.Position{})
	box.TypeParams = []*Symbol{tp}
	box.SetInfo(box.TypeRef())
	get := table.Enter(TermName("get"), MethodSymbol, Method, box, "a", token.Position{})
	get.SetInfo(typesystem.TExpr{ReturnType: tp.ParamRef()})

	site := typesystem.TApp{Constructor: box.TypeRef(), Args: []typesystem.Type{table.BuiltinType("Int")}}
	d := table.Member(env, site, TermName("get"))
	if !d.Exists() {
		t.Fatalf("Box[Int].get not found")
	}
	want := typesystem.TExpr{ReturnType: table.BuiltinType("Int")}
	if !typesystem.Equal(d.Single().Info, want) {
		t.Errorf("Box[Int].get = %v, want %v", d.Single().Info, want)
	}
}

func TestPackageMembers(t *testing.T) {
	table := NewTable()
	d := table.Member(nil, table.Lang.TermRef(), TypeName("Int"))
	if !d.Exists() {
		t.Fatalf("lang.Int not found as package member")
	}
	if d := table.Member(nil, table.Lang.TermRef(), TermName("Int")); d.Exists() {
		t.Errorf("Int must not be found in the term namespace")
	}
	pl := table.Member(nil, table.Predef.TermRef(), TermName("println"))
	if !pl.Exists() {
		t.Errorf("Predef.println not found")
	}
	if again := table.EnterPackage([]string{"lang"}); again != table.Lang {
		t.Errorf("EnterPackage created a second lang package")
	}
}

func TestCyclicCompletion(t *testing.T) {
	table := NewTable()
	pkg := table.EnterPackage([]string{"demo"})
	a := table.Enter(TermName("a"), ValueSymbol, 0, pkg, "u", token.Position{})
	b := table.Enter(TermName("b"), ValueSymbol, 0, pkg, "u", token.Position{})
	a.SetCompleter(func(*Symbol) (typesystem.Type, error) { return b.Info() })
	b.SetCompleter(func(*Symbol) (typesystem.Type, error) { return a.Info() })

	_, err := a.Info()
	if err == nil || !IsCyclic(err) {
		t.Fatalf("expected cyclic reference error, got %v", err)
	}
	if a.IsCompleting() || b.IsCompleting() {
		t.Errorf("completing flags left set")
	}
}

func TestReentrantCompletion(t *testing.T) {
	table := NewTable()
	pkg := table.EnterPackage([]string{"demo"})
	x := table.Enter(TermName("x"), ValueSymbol, 0, pkg, "u", token.Position{})
	y := table.Enter(TermName("y"), ValueSymbol, 0, pkg, "u", token.Position{})
	x.SetCompleter(func(*Symbol) (typesystem.Type, error) { return table.BuiltinType("Int"), nil })
	y.SetCompleter(func(*Symbol) (typesystem.Type, error) { return x.Info() })

	got, err := y.Info()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !typesystem.Equal(got, table.BuiltinType("Int")) {
		t.Errorf("y: %v, want Int", got)
	}
	if !x.HasInfo() {
		t.Errorf("x should be completed as a side effect")
	}
}
