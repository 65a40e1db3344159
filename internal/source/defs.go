package source

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/token"
)

// valDef accepts {name, type, rhs, mods} or the short forms [name, rhs] and
// [name, type, rhs].
func (l *loader) valDef(v *yaml.Node, pos token.Position, mutable bool) (ast.Tree[ast.Untyped], error) {
	d := &ast.ValDef[ast.Untyped]{Node: l.node(pos)}
	if mutable {
		d.Mods.Flags |= symbols.Mutable
	}
	var err error
	if v.Kind == yaml.SequenceNode {
		it, err := l.items(v, 2, 3)
		if err != nil {
			return nil, err
		}
		d.Name = it[0].Value
		if len(it) == 3 {
			if d.Tpt, err = l.typ(it[1]); err != nil {
				return nil, err
			}
		}
		if d.Rhs, err = l.expr(it[len(it)-1]); err != nil {
			return nil, err
		}
		return d, nil
	}
	f, err := l.fields(v, "name", "type", "rhs", "mods")
	if err != nil {
		return nil, err
	}
	if f["name"] == nil {
		return nil, l.errorf(v, "val without a name")
	}
	d.Name = f["name"].Value
	m, err := l.mods(f["mods"])
	if err != nil {
		return nil, err
	}
	d.Mods.Flags |= m.Flags
	if d.Tpt, err = l.optType(f["type"]); err != nil {
		return nil, err
	}
	if d.Rhs, err = l.optExpr(f["rhs"]); err != nil {
		return nil, err
	}
	return d, nil
}

// defDef reads {name, tparams, params, implicit, type, rhs, mods}. A missing
// params field declares a parameterless method; params: [] declares one
// empty list. params is either one list of parameters or a list of lists.
func (l *loader) defDef(v *yaml.Node, pos token.Position) (ast.Tree[ast.Untyped], error) {
	f, err := l.fields(v, "name", "tparams", "params", "implicit", "type", "rhs", "mods")
	if err != nil {
		return nil, err
	}
	if f["name"] == nil {
		return nil, l.errorf(v, "def without a name")
	}
	d := &ast.DefDef[ast.Untyped]{Node: l.node(pos), Name: f["name"].Value}
	if d.Mods, err = l.mods(f["mods"]); err != nil {
		return nil, err
	}
	if d.TypeParams, err = l.tparams(f["tparams"]); err != nil {
		return nil, err
	}
	if ps := f["params"]; ps != nil {
		if ps.Kind != yaml.SequenceNode {
			return nil, l.errorf(ps, "params must be a list")
		}
		if len(ps.Content) > 0 && ps.Content[0].Kind == yaml.SequenceNode {
			for _, list := range ps.Content {
				vs, err := l.params(list)
				if err != nil {
					return nil, err
				}
				d.ParamLists = append(d.ParamLists, vs)
			}
		} else {
			vs, err := l.params(ps)
			if err != nil {
				return nil, err
			}
			d.ParamLists = append(d.ParamLists, vs)
		}
	}
	if imp := f["implicit"]; imp != nil {
		vs, err := l.params(imp)
		if err != nil {
			return nil, err
		}
		for _, p := range vs {
			p.Mods.Flags |= symbols.Implicit
		}
		d.ParamLists = append(d.ParamLists, vs)
	}
	if d.Tpt, err = l.optType(f["type"]); err != nil {
		return nil, err
	}
	if d.Rhs, err = l.optExpr(f["rhs"]); err != nil {
		return nil, err
	}
	if d.Rhs == nil {
		d.Mods.Flags |= symbols.Deferred
	}
	return d, nil
}

// params reads a parameter list. Each parameter is a bare name, a one-pair
// mapping {name: type}, or {name, type, mods}.
func (l *loader) params(n *yaml.Node) ([]*ast.ValDef[ast.Untyped], error) {
	it, err := l.items(n, 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]*ast.ValDef[ast.Untyped], 0, len(it))
	for _, p := range it {
		vd := &ast.ValDef[ast.Untyped]{Node: l.node(l.pos(p))}
		vd.Mods.Flags |= symbols.Param
		switch {
		case p.Kind == yaml.ScalarNode:
			vd.Name = p.Value
		case p.Kind == yaml.MappingNode && len(p.Content) == 2 && p.Content[0].Value != "name":
			vd.Name = p.Content[0].Value
			if vd.Tpt, err = l.typ(p.Content[1]); err != nil {
				return nil, err
			}
		default:
			f, err := l.fields(p, "name", "type", "mods")
			if err != nil {
				return nil, err
			}
			if f["name"] == nil {
				return nil, l.errorf(p, "parameter without a name")
			}
			vd.Name = f["name"].Value
			m, err := l.mods(f["mods"])
			if err != nil {
				return nil, err
			}
			vd.Mods.Flags |= m.Flags
			if vd.Tpt, err = l.optType(f["type"]); err != nil {
				return nil, err
			}
		}
		out = append(out, vd)
	}
	return out, nil
}

// tparams reads type parameters written as "T", "+T", "-T", "T <: Hi",
// "T >: Lo" or {name, variance, lo, hi}.
func (l *loader) tparams(n *yaml.Node) ([]*ast.TypeDef[ast.Untyped], error) {
	if isNull(n) {
		return nil, nil
	}
	it, err := l.items(n, 0, -1)
	if err != nil {
		return nil, err
	}
	var out []*ast.TypeDef[ast.Untyped]
	for _, p := range it {
		pos := l.pos(p)
		td := &ast.TypeDef[ast.Untyped]{Node: l.node(pos)}
		var lo, hi ast.Tree[ast.Untyped]
		if p.Kind == yaml.ScalarNode {
			s := strings.TrimSpace(p.Value)
			switch {
			case strings.HasPrefix(s, "+"):
				td.Mods.Flags |= symbols.Covariant
				s = s[1:]
			case strings.HasPrefix(s, "-"):
				td.Mods.Flags |= symbols.Contravariant
				s = s[1:]
			}
			name, bound := s, ""
			if i := strings.Index(s, "<:"); i >= 0 {
				name, bound = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+2:])
				if hi, err = l.parseTypeString(bound, pos); err != nil {
					return nil, err
				}
			} else if i := strings.Index(s, ">:"); i >= 0 {
				name, bound = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+2:])
				if lo, err = l.parseTypeString(bound, pos); err != nil {
					return nil, err
				}
			}
			td.Name = name
		} else {
			f, err := l.fields(p, "name", "variance", "lo", "hi")
			if err != nil {
				return nil, err
			}
			if f["name"] == nil {
				return nil, l.errorf(p, "type parameter without a name")
			}
			td.Name = f["name"].Value
			if v := f["variance"]; v != nil {
				switch v.Value {
				case "+", "covariant":
					td.Mods.Flags |= symbols.Covariant
				case "-", "contravariant":
					td.Mods.Flags |= symbols.Contravariant
				default:
					return nil, l.errorf(v, "unknown variance %q", v.Value)
				}
			}
			if lo, err = l.optType(f["lo"]); err != nil {
				return nil, err
			}
			if hi, err = l.optType(f["hi"]); err != nil {
				return nil, err
			}
		}
		if lo != nil || hi != nil {
			td.Rhs = &ast.TypeBoundsTree[ast.Untyped]{Node: l.node(pos), Lo: lo, Hi: hi}
		}
		out = append(out, td)
	}
	return out, nil
}

func (l *loader) typeList(n *yaml.Node) ([]ast.Tree[ast.Untyped], error) {
	if isNull(n) {
		return nil, nil
	}
	it, err := l.items(n, 0, -1)
	if err != nil {
		return nil, err
	}
	return l.types(it)
}

func (l *loader) body(n *yaml.Node) ([]ast.Tree[ast.Untyped], error) {
	if isNull(n) {
		return nil, nil
	}
	it, err := l.items(n, 0, -1)
	if err != nil {
		return nil, err
	}
	return l.exprs(it)
}

func (l *loader) classDef(v *yaml.Node, pos token.Position) (ast.Tree[ast.Untyped], error) {
	if v.Kind == yaml.ScalarNode {
		return &ast.ClassDef[ast.Untyped]{Node: l.node(pos), Name: v.Value}, nil
	}
	f, err := l.fields(v, "name", "tparams", "params", "parents", "body", "mods")
	if err != nil {
		return nil, err
	}
	if f["name"] == nil {
		return nil, l.errorf(v, "class without a name")
	}
	c := &ast.ClassDef[ast.Untyped]{Node: l.node(pos), Name: f["name"].Value}
	if c.Mods, err = l.mods(f["mods"]); err != nil {
		return nil, err
	}
	if c.TypeParams, err = l.tparams(f["tparams"]); err != nil {
		return nil, err
	}
	if ps := f["params"]; ps != nil {
		if c.Params, err = l.params(ps); err != nil {
			return nil, err
		}
		for _, p := range c.Params {
			p.Mods.Flags |= symbols.ParamAccessor
		}
	}
	if c.Parents, err = l.typeList(f["parents"]); err != nil {
		return nil, err
	}
	if c.Body, err = l.body(f["body"]); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *loader) moduleDef(v *yaml.Node, pos token.Position) (ast.Tree[ast.Untyped], error) {
	if v.Kind == yaml.ScalarNode {
		return &ast.ModuleDef[ast.Untyped]{Node: l.node(pos), Name: v.Value}, nil
	}
	f, err := l.fields(v, "name", "parents", "body", "mods")
	if err != nil {
		return nil, err
	}
	if f["name"] == nil {
		return nil, l.errorf(v, "object without a name")
	}
	m := &ast.ModuleDef[ast.Untyped]{Node: l.node(pos), Name: f["name"].Value}
	if m.Mods, err = l.mods(f["mods"]); err != nil {
		return nil, err
	}
	if m.Parents, err = l.typeList(f["parents"]); err != nil {
		return nil, err
	}
	if m.Body, err = l.body(f["body"]); err != nil {
		return nil, err
	}
	return m, nil
}

// typeDef reads {name, tparams, rhs, mods} or [name, rhs]. An alias
// without rhs is abstract.
func (l *loader) typeDef(v *yaml.Node, pos token.Position) (ast.Tree[ast.Untyped], error) {
	td := &ast.TypeDef[ast.Untyped]{Node: l.node(pos)}
	if v.Kind == yaml.SequenceNode {
		it, err := l.items(v, 2, 2)
		if err != nil {
			return nil, err
		}
		td.Name = it[0].Value
		if td.Rhs, err = l.typ(it[1]); err != nil {
			return nil, err
		}
		return td, nil
	}
	f, err := l.fields(v, "name", "tparams", "rhs", "mods")
	if err != nil {
		return nil, err
	}
	if f["name"] == nil {
		return nil, l.errorf(v, "type without a name")
	}
	td.Name = f["name"].Value
	if td.Mods, err = l.mods(f["mods"]); err != nil {
		return nil, err
	}
	if td.TypeParams, err = l.tparams(f["tparams"]); err != nil {
		return nil, err
	}
	if td.Rhs, err = l.optType(f["rhs"]); err != nil {
		return nil, err
	}
	if td.Rhs == nil {
		td.Mods.Flags |= symbols.Deferred
	}
	return td, nil
}

// importDef reads [qualifier, selectors...] where a selector is "name",
// "name => rename", "name => _" or "_". Without selectors the last path
// segment is imported.
func (l *loader) importDef(v *yaml.Node, pos token.Position) (ast.Tree[ast.Untyped], error) {
	it, err := l.items(v, 1, -1)
	if err != nil {
		return nil, err
	}
	qual := it[0].Value
	sels := it[1:]
	imp := &ast.Import[ast.Untyped]{Node: l.node(pos)}
	if len(sels) == 0 {
		i := strings.LastIndex(qual, ".")
		if i < 0 {
			return nil, l.errorf(v, "import %q selects nothing", qual)
		}
		imp.Selectors = []ast.ImportSelector{{Name: qual[i+1:]}}
		qual = qual[:i]
	}
	imp.Expr = l.path(qual, l.pos(it[0]))
	for _, s := range sels {
		sel := strings.TrimSpace(s.Value)
		if sel == config.WildcardName {
			imp.Selectors = append(imp.Selectors, ast.ImportSelector{Wildcard: true})
			continue
		}
		name, rename := sel, ""
		if i := strings.Index(sel, "=>"); i >= 0 {
			name, rename = strings.TrimSpace(sel[:i]), strings.TrimSpace(sel[i+2:])
		}
		imp.Selectors = append(imp.Selectors, ast.ImportSelector{Name: name, Rename: rename})
	}
	return imp, nil
}

func (l *loader) packageDef(n, v *yaml.Node) (*ast.PackageDef[ast.Untyped], error) {
	f, err := l.fields(v, "name", "stats")
	if err != nil {
		return nil, err
	}
	p := &ast.PackageDef[ast.Untyped]{Node: l.node(l.pos(n))}
	if name := f["name"]; name != nil && name.Value != "" {
		p.Pid = strings.Split(name.Value, ".")
	}
	if p.Stats, err = l.body(f["stats"]); err != nil {
		return nil, err
	}
	return p, nil
}
