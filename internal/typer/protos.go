package typer

import (
	"fmt"
	"strings"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typesystem"
)

// SelectionProto is the expectation "has a member named Name". It is the
// expected type of the qualifier of a selection.
type SelectionProto struct {
	Name  symbols.Name
	table *symbols.Table
}

func (p *SelectionProto) String() string                      { return fmt.Sprintf("?{ %s }", p.Name) }
func (p *SelectionProto) Apply(typesystem.Subst) typesystem.Type { return p }
func (p *SelectionProto) FreeTypeVariables() []typesystem.TVar { return nil }

func (p *SelectionProto) IsMatchedBy(tp typesystem.Type, env *typesystem.Env) bool {
	return p.table.Member(env, tp, p.Name).Exists()
}

// FunProto is the expectation "applied to these arguments". Args stay
// untyped: each candidate method types them against its own formals.
type FunProto struct {
	Args       []ast.Tree[ast.Untyped]
	ResultType typesystem.Type
	ctx        *Context
}

func (p *FunProto) String() string {
	return fmt.Sprintf("(%d args) => %s", len(p.Args), resultString(p.ResultType))
}
func (p *FunProto) Apply(typesystem.Subst) typesystem.Type { return p }
func (p *FunProto) FreeTypeVariables() []typesystem.TVar { return nil }

func (p *FunProto) IsMatchedBy(tp typesystem.Type, _ *typesystem.Env) bool {
	params, ok := paramTypes(tp)
	return ok && len(params) == len(p.Args)
}

// PolyProto is the expectation "given these type arguments".
type PolyProto struct {
	Targs      []typesystem.Type
	ResultType typesystem.Type
}

func (p *PolyProto) String() string {
	names := make([]string, len(p.Targs))
	for i, a := range p.Targs {
		names[i] = a.String()
	}
	return fmt.Sprintf("[%s] => %s", strings.Join(names, ", "), resultString(p.ResultType))
}
func (p *PolyProto) Apply(typesystem.Subst) typesystem.Type { return p }
func (p *PolyProto) FreeTypeVariables() []typesystem.TVar { return nil }

func (p *PolyProto) IsMatchedBy(tp typesystem.Type, _ *typesystem.Env) bool {
	poly, ok := tp.(typesystem.TForall)
	return ok && len(poly.Vars) == len(p.Targs)
}

var (
	_ typesystem.Proto = (*SelectionProto)(nil)
	_ typesystem.Proto = (*FunProto)(nil)
	_ typesystem.Proto = (*PolyProto)(nil)
)

func resultString(tp typesystem.Type) string {
	if tp == nil {
		return "?"
	}
	return tp.String()
}

// paramTypes returns the first parameter list of something applicable.
func paramTypes(tp typesystem.Type) ([]typesystem.Type, bool) {
	switch t := tp.(type) {
	case typesystem.TMethod:
		return t.Params, true
	case typesystem.TFunc:
		return t.Params, true
	case typesystem.TForall:
		return paramTypes(t.Type)
	}
	return nil, false
}

// isValueProto reports whether pt is an ordinary expected type rather than
// one of the structural prototypes.
func isValueProto(pt typesystem.Type) bool {
	if typesystem.IsNoProto(pt) {
		return false
	}
	switch pt.(type) {
	case *SelectionProto, *FunProto, *PolyProto:
		return false
	}
	return true
}
