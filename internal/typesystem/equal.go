package typesystem

// Equal is structural type equality. Named references compare by designator
// identity, never by deep comparison of the declarations behind them.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case TVar:
		bv, ok := b.(TVar)
		return ok && a.ID == bv.ID
	case TParam:
		bp, ok := b.(TParam)
		return ok && sameRef(a.Ref, bp.Ref)
	case TCon:
		bc, ok := b.(TCon)
		return ok && sameCon(a, bc)
	case TApp:
		ba, ok := b.(TApp)
		return ok && sameCon(a.Constructor, ba.Constructor) && equalAll(a.Args, ba.Args)
	case TFunc:
		bf, ok := b.(TFunc)
		return ok && equalAll(a.Params, bf.Params) && Equal(a.ReturnType, bf.ReturnType)
	case TMethod:
		bm, ok := b.(TMethod)
		return ok && a.Implicit == bm.Implicit && equalAll(a.Params, bm.Params) && Equal(a.ReturnType, bm.ReturnType)
	case TExpr:
		be, ok := b.(TExpr)
		return ok && Equal(a.ReturnType, be.ReturnType)
	case TForall:
		bf, ok := b.(TForall)
		if !ok || len(a.Vars) != len(bf.Vars) {
			return false
		}
		for i := range a.Vars {
			if !sameRef(a.Vars[i].Ref, bf.Vars[i].Ref) {
				return false
			}
		}
		return Equal(a.Type, bf.Type)
	case TConst:
		bc, ok := b.(TConst)
		return ok && a.Value == bc.Value
	case TUnion:
		bu, ok := b.(TUnion)
		return ok && sameSet(a.Types, bu.Types)
	case TAnd:
		ba, ok := b.(TAnd)
		return ok && sameSet(a.Types, ba.Types)
	case TRefined:
		br, ok := b.(TRefined)
		return ok && a.Name == br.Name && Equal(a.Parent, br.Parent) && Equal(a.Info, br.Info)
	case TAnnotated:
		ba, ok := b.(TAnnotated)
		return ok && a.Annotation == ba.Annotation && Equal(a.Type, ba.Type)
	case TError:
		_, ok := b.(TError)
		return ok
	case TNone:
		_, ok := b.(TNone)
		return ok
	case TWildcard:
		bw, ok := b.(TWildcard)
		return ok && Equal(a.Lo, bw.Lo) && Equal(a.Hi, bw.Hi)
	case TTermRef:
		bt, ok := b.(TTermRef)
		return ok && sameRef(a.Ref, bt.Ref)
	case TThis:
		bt, ok := b.(TThis)
		return ok && sameRef(a.Class, bt.Class)
	case TSuper:
		bs, ok := b.(TSuper)
		return ok && sameRef(a.This.Class, bs.This.Class) && Equal(a.Super, bs.Super)
	case TOverloaded:
		bo, ok := b.(TOverloaded)
		if !ok || len(a.Alts) != len(bo.Alts) {
			return false
		}
		for i := range a.Alts {
			if !sameRef(a.Alts[i].Ref, bo.Alts[i].Ref) {
				return false
			}
		}
		return true
	case WildcardProto:
		_, ok := b.(WildcardProto)
		return ok
	}
	return false
}

func sameRef(a, b Designator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.DesignatorID() == b.DesignatorID()
}

func sameCon(a, b TCon) bool {
	_, aBuiltin := a.Ref.(builtinRef)
	_, bBuiltin := b.Ref.(builtinRef)
	if a.Ref != nil && b.Ref != nil && !aBuiltin && !bBuiltin {
		return sameRef(a.Ref, b.Ref)
	}
	return a.FullName() == b.FullName()
}

func equalAll(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameSet(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		found := false
		for _, y := range b {
			if Equal(x, y) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
