package symbols

import (
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

// PreludeUnit is the compilation unit of every prelude symbol.
const PreludeUnit = "<prelude>"

// numeric classes with arithmetic, in widening order
var arithmeticTypes = []string{config.IntTypeName, config.LongTypeName, config.DoubleTypeName}

func (t *Table) initPrelude() {
	t.Lang = t.EnterPackage([]string{config.LangPackage})

	anyT := t.defineClass(config.AnyTypeName)
	anyVal := t.defineClass(config.AnyValTypeName, anyT)
	anyRef := t.defineClass(config.AnyRefTypeName, anyT)
	t.defineClass(config.NothingTypeName)
	t.defineClass(config.NullTypeName)
	for _, name := range []string{
		config.UnitTypeName, config.BooleanTypeName, config.ByteTypeName, config.ShortTypeName,
		config.CharTypeName, config.IntTypeName, config.LongTypeName, config.FloatTypeName,
		config.DoubleTypeName,
	} {
		t.defineClass(name, anyVal)
	}
	t.defineClass(config.StringTypeName, anyRef)

	boolT := t.BuiltinType(config.BooleanTypeName)
	strT := t.BuiltinType(config.StringTypeName)
	intT := t.BuiltinType(config.IntTypeName)
	anyType := t.BuiltinType(config.AnyTypeName)

	anySym := t.Builtin(config.AnyTypeName)
	t.defineMethod(anySym, "==", method1("x", anyType, boolT))
	t.defineMethod(anySym, "!=", method1("x", anyType, boolT))
	t.defineMethod(anySym, "toString", typesystem.TMethod{ReturnType: strT})

	for i, self := range arithmeticTypes {
		cls := t.Builtin(self)
		for j, arg := range arithmeticTypes {
			result := arithmeticTypes[max(i, j)]
			for _, op := range []string{"+", "-", "*", "/"} {
				t.defineMethod(cls, op, method1("x", t.BuiltinType(arg), t.BuiltinType(result)))
			}
			t.defineMethod(cls, "<", method1("x", t.BuiltinType(arg), boolT))
			t.defineMethod(cls, "==", method1("x", t.BuiltinType(arg), boolT))
		}
		t.defineMethod(cls, config.UnaryPrefix+"-", typesystem.TExpr{ReturnType: t.BuiltinType(self)})
	}

	strSym := t.Builtin(config.StringTypeName)
	t.defineMethod(strSym, "+", method1("x", anyType, strT))
	t.defineMethod(strSym, "length", typesystem.TExpr{ReturnType: intT})

	boolSym := t.Builtin(config.BooleanTypeName)
	t.defineMethod(boolSym, "&&", method1("x", boolT, boolT))
	t.defineMethod(boolSym, "||", method1("x", boolT, boolT))
	t.defineMethod(boolSym, config.UnaryPrefix+"!", typesystem.TExpr{ReturnType: boolT})

	t.Predef = t.Enter(TermName(config.PredefModule), ModuleSymbol, Stable, t.Lang, PreludeUnit, token.Position{})
	t.Predef.Parents = []typesystem.Type{anyRef.TypeRef()}
	t.Predef.SetInfo(t.Predef.TermRef())
	t.defineMethod(t.Predef, "println", method1("x", anyType, t.BuiltinType(config.UnitTypeName)))

	identity := t.defineMethod(t.Predef, "identity", nil)
	a := t.NewSymbol(TypeName("A"), TypeParamSymbol, 0, identity, PreludeUnit, token.Position{})
	identity.TypeParams = []*Symbol{a}
	identity.SetInfo(typesystem.TForall{
		Vars: []typesystem.TParam{a.ParamRef()},
		Type: method1("x", a.ParamRef(), a.ParamRef()),
	})
}

func (t *Table) defineClass(name string, parents ...*Symbol) *Symbol {
	cls := t.Enter(TypeName(name), ClassSymbol, 0, t.Lang, PreludeUnit, token.Position{})
	for _, p := range parents {
		cls.Parents = append(cls.Parents, p.TypeRef())
	}
	cls.SetInfo(cls.TypeRef())
	t.builtins[cls.FullName()] = cls
	return cls
}

func (t *Table) defineMethod(owner *Symbol, name string, info typesystem.Type) *Symbol {
	m := t.Enter(TermName(name), MethodSymbol, Method, owner, PreludeUnit, token.Position{})
	if info != nil {
		m.SetInfo(info)
	}
	return m
}

func method1(param string, paramType, result typesystem.Type) typesystem.TMethod {
	return typesystem.TMethod{
		ParamNames: []string{param},
		Params:     []typesystem.Type{paramType},
		ReturnType: result,
	}
}
