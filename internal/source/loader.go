package source

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

// Load reads a tree fixture file and returns its compilation unit, a PackageDef.
func Load(path string, ids *ast.IDGen) (*ast.PackageDef[ast.Untyped], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return Parse(data, path, ids)
}

// Parse decodes a tree fixture. The document is either a package mapping,
// a list of statements, or a single statement; the latter two are wrapped
// in an empty package clause.
func Parse(data []byte, file string, ids *ast.IDGen) (*ast.PackageDef[ast.Untyped], error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", file)
	}
	l := &loader{file: file, ids: ids}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return &ast.PackageDef[ast.Untyped]{Node: l.node(token.Position{File: file, Line: 1, Column: 1})}, nil
	}
	root := doc.Content[0]
	if kind, payload, ok := single(root); ok && kind == "package" {
		return l.packageDef(root, payload)
	}
	stats, err := l.stats(root)
	if err != nil {
		return nil, err
	}
	return &ast.PackageDef[ast.Untyped]{Node: l.node(l.pos(root)), Stats: stats}, nil
}

// ParseExpr decodes a single expression, for tests and tools.
func ParseExpr(data []byte, file string, ids *ast.IDGen) (ast.Tree[ast.Untyped], error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", file)
	}
	if len(doc.Content) == 0 {
		return nil, errors.Errorf("%s: empty document", file)
	}
	l := &loader{file: file, ids: ids}
	return l.expr(doc.Content[0])
}

type loader struct {
	file string
	ids  *ast.IDGen
}

func (l *loader) node(pos token.Position) ast.Node[ast.Untyped] {
	return ast.Node[ast.Untyped]{ID: l.ids.Next(), Pos: pos}
}

func (l *loader) pos(n *yaml.Node) token.Position {
	return token.Position{File: l.file, Line: n.Line, Column: n.Column}
}

func (l *loader) errorf(n *yaml.Node, format string, args ...interface{}) error {
	return errors.Errorf("%s: %s", l.pos(n), fmt.Sprintf(format, args...))
}

// single splits a one-key mapping into its key and value.
func single(n *yaml.Node) (string, *yaml.Node, bool) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, false
	}
	return n.Content[0].Value, n.Content[1], true
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func (l *loader) items(n *yaml.Node, min, max int) ([]*yaml.Node, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, l.errorf(n, "expected a list")
	}
	if len(n.Content) < min {
		return nil, l.errorf(n, "expected at least %d elements, got %d", min, len(n.Content))
	}
	if max >= 0 && len(n.Content) > max {
		return nil, l.errorf(n, "expected at most %d elements, got %d", max, len(n.Content))
	}
	return n.Content, nil
}

func (l *loader) fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, l.errorf(n, "expected a mapping")
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		known := false
		for _, a := range allowed {
			if a == key {
				known = true
				break
			}
		}
		if !known {
			return nil, l.errorf(n.Content[i], "unknown field %q", key)
		}
		out[key] = n.Content[i+1]
	}
	return out, nil
}

func (l *loader) exprs(ns []*yaml.Node) ([]ast.Tree[ast.Untyped], error) {
	out := make([]ast.Tree[ast.Untyped], 0, len(ns))
	for _, n := range ns {
		e, err := l.expr(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *loader) optExpr(n *yaml.Node) (ast.Tree[ast.Untyped], error) {
	if isNull(n) {
		return nil, nil
	}
	return l.expr(n)
}

func (l *loader) stats(n *yaml.Node) ([]ast.Tree[ast.Untyped], error) {
	if n.Kind == yaml.SequenceNode {
		return l.exprs(n.Content)
	}
	e, err := l.expr(n)
	if err != nil {
		return nil, err
	}
	return []ast.Tree[ast.Untyped]{e}, nil
}

func (l *loader) scalar(n *yaml.Node) (ast.Tree[ast.Untyped], error) {
	pos := l.pos(n)
	lit := func(c typesystem.Constant) ast.Tree[ast.Untyped] {
		return &ast.Literal[ast.Untyped]{Node: l.node(pos), Value: c}
	}
	switch n.Tag {
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, l.errorf(n, "bad integer %q", n.Value)
		}
		return lit(typesystem.IntConst(v)), nil
	case "!!float":
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, l.errorf(n, "bad number %q", n.Value)
		}
		return lit(typesystem.DoubleConst(v)), nil
	case "!!bool":
		return lit(typesystem.BooleanConst(n.Value == "true")), nil
	case "!!null":
		return lit(typesystem.NullConst()), nil
	}
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return lit(typesystem.StringConst(n.Value)), nil
	}
	return l.path(n.Value, pos), nil
}

// path turns a dotted name into an identifier or a selection chain.
func (l *loader) path(s string, pos token.Position) ast.Tree[ast.Untyped] {
	parts := strings.Split(s, ".")
	if len(parts) == 1 || s == "." || strings.Contains(s, "..") {
		return &ast.Ident[ast.Untyped]{Node: l.node(pos), Name: s}
	}
	var t ast.Tree[ast.Untyped] = &ast.Ident[ast.Untyped]{Node: l.node(pos), Name: parts[0]}
	for _, p := range parts[1:] {
		t = &ast.Select[ast.Untyped]{Node: l.node(pos), Qualifier: t, Name: p}
	}
	return t
}

func (l *loader) expr(n *yaml.Node) (ast.Tree[ast.Untyped], error) {
	if n.Kind == yaml.ScalarNode {
		return l.scalar(n)
	}
	kind, v, ok := single(n)
	if !ok {
		return nil, l.errorf(n, "expected a scalar or a one-key mapping")
	}
	pos := l.pos(n)
	switch kind {
	case "lit":
		if v.Kind != yaml.ScalarNode {
			return nil, l.errorf(v, "lit expects a scalar")
		}
		if v.Tag == "!!str" {
			return &ast.Literal[ast.Untyped]{Node: l.node(pos), Value: typesystem.StringConst(v.Value)}, nil
		}
		return l.scalar(v)
	case "long":
		i, err := strconv.ParseInt(v.Value, 0, 64)
		if err != nil {
			return nil, l.errorf(v, "bad long %q", v.Value)
		}
		return &ast.Literal[ast.Untyped]{Node: l.node(pos), Value: typesystem.LongConst(i)}, nil
	case "float":
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, l.errorf(v, "bad float %q", v.Value)
		}
		return &ast.Literal[ast.Untyped]{Node: l.node(pos), Value: typesystem.Constant{Tag: typesystem.FloatTag, Value: f}}, nil
	case "char":
		r := []rune(v.Value)
		if len(r) != 1 {
			return nil, l.errorf(v, "char expects one character")
		}
		return &ast.Literal[ast.Untyped]{Node: l.node(pos), Value: typesystem.CharConst(r[0])}, nil
	case "string":
		return &ast.Literal[ast.Untyped]{Node: l.node(pos), Value: typesystem.StringConst(v.Value)}, nil
	case "unit":
		return &ast.Literal[ast.Untyped]{Node: l.node(pos), Value: typesystem.UnitConst()}, nil
	case "id":
		return &ast.Ident[ast.Untyped]{Node: l.node(pos), Name: v.Value}, nil
	case "sel":
		it, err := l.items(v, 2, 2)
		if err != nil {
			return nil, err
		}
		q, err := l.expr(it[0])
		if err != nil {
			return nil, err
		}
		return &ast.Select[ast.Untyped]{Node: l.node(pos), Qualifier: q, Name: it[1].Value}, nil
	case "apply", "tapply":
		it, err := l.items(v, 1, -1)
		if err != nil {
			return nil, err
		}
		fun, err := l.expr(it[0])
		if err != nil {
			return nil, err
		}
		if kind == "tapply" {
			args, err := l.types(it[1:])
			if err != nil {
				return nil, err
			}
			return &ast.TypeApply[ast.Untyped]{Node: l.node(pos), Fun: fun, Args: args}, nil
		}
		args, err := l.exprs(it[1:])
		if err != nil {
			return nil, err
		}
		return &ast.Apply[ast.Untyped]{Node: l.node(pos), Fun: fun, Args: args}, nil
	case "infix":
		it, err := l.items(v, 3, 3)
		if err != nil {
			return nil, err
		}
		left, err := l.expr(it[0])
		if err != nil {
			return nil, err
		}
		right, err := l.expr(it[2])
		if err != nil {
			return nil, err
		}
		return &ast.InfixOp[ast.Untyped]{Node: l.node(pos), Left: left, Op: it[1].Value, Right: right}, nil
	case "prefix":
		it, err := l.items(v, 2, 2)
		if err != nil {
			return nil, err
		}
		operand, err := l.expr(it[1])
		if err != nil {
			return nil, err
		}
		return &ast.PrefixOp[ast.Untyped]{Node: l.node(pos), Op: it[0].Value, Operand: operand}, nil
	case "parens":
		it, err := l.items(v, 0, -1)
		if err != nil {
			return nil, err
		}
		es, err := l.exprs(it)
		if err != nil {
			return nil, err
		}
		return &ast.Parens[ast.Untyped]{Node: l.node(pos), Exprs: es}, nil
	case "block":
		return l.block(v, pos)
	case "if":
		it, err := l.items(v, 2, 3)
		if err != nil {
			return nil, err
		}
		es, err := l.exprs(it)
		if err != nil {
			return nil, err
		}
		t := &ast.If[ast.Untyped]{Node: l.node(pos), Cond: es[0], Then: es[1]}
		if len(es) == 3 {
			t.Else = es[2]
		}
		return t, nil
	case "fn":
		return l.function(v, pos)
	case "match":
		return l.match(v, pos)
	case "assign":
		it, err := l.items(v, 2, 2)
		if err != nil {
			return nil, err
		}
		es, err := l.exprs(it)
		if err != nil {
			return nil, err
		}
		return &ast.Assign[ast.Untyped]{Node: l.node(pos), Lhs: es[0], Rhs: es[1]}, nil
	case "ascribe":
		it, err := l.items(v, 2, 2)
		if err != nil {
			return nil, err
		}
		e, err := l.expr(it[0])
		if err != nil {
			return nil, err
		}
		tpt, err := l.typ(it[1])
		if err != nil {
			return nil, err
		}
		return &ast.Ascription[ast.Untyped]{Node: l.node(pos), Expr: e, Tpt: tpt}, nil
	case "new":
		it, err := l.items(v, 1, -1)
		if err != nil {
			return nil, err
		}
		tpt, err := l.typ(it[0])
		if err != nil {
			return nil, err
		}
		args, err := l.exprs(it[1:])
		if err != nil {
			return nil, err
		}
		alloc := &ast.New[ast.Untyped]{Node: l.node(pos), Tpt: tpt}
		ctor := &ast.Select[ast.Untyped]{Node: l.node(pos), Qualifier: alloc, Name: config.ConstructorName}
		return &ast.Apply[ast.Untyped]{Node: l.node(pos), Fun: ctor, Args: args}, nil
	case "bind":
		it, err := l.items(v, 2, 2)
		if err != nil {
			return nil, err
		}
		body, err := l.expr(it[1])
		if err != nil {
			return nil, err
		}
		return &ast.Bind[ast.Untyped]{Node: l.node(pos), Name: it[0].Value, Body: body}, nil
	case "alt":
		it, err := l.items(v, 2, -1)
		if err != nil {
			return nil, err
		}
		es, err := l.exprs(it)
		if err != nil {
			return nil, err
		}
		return &ast.Alternative[ast.Untyped]{Node: l.node(pos), Trees: es}, nil
	case "return":
		e, err := l.optExpr(v)
		if err != nil {
			return nil, err
		}
		return &ast.Return[ast.Untyped]{Node: l.node(pos), Expr: e}, nil
	case "this":
		return &ast.This[ast.Untyped]{Node: l.node(pos), Qual: v.Value}, nil
	case "super":
		return &ast.Super[ast.Untyped]{Node: l.node(pos), Qual: v.Value}, nil
	case "val", "var":
		return l.valDef(v, pos, kind == "var")
	case "def":
		return l.defDef(v, pos)
	case "class":
		return l.classDef(v, pos)
	case "object":
		return l.moduleDef(v, pos)
	case "type":
		return l.typeDef(v, pos)
	case "import":
		return l.importDef(v, pos)
	case "package":
		return l.packageDef(n, v)
	}
	return nil, l.errorf(n, "unknown tree kind %q", kind)
}

func (l *loader) block(v *yaml.Node, pos token.Position) (ast.Tree[ast.Untyped], error) {
	it, err := l.items(v, 0, -1)
	if err != nil {
		return nil, err
	}
	es, err := l.exprs(it)
	if err != nil {
		return nil, err
	}
	b := &ast.Block[ast.Untyped]{Node: l.node(pos)}
	if len(es) > 0 {
		last := es[len(es)-1]
		if _, isImport := last.(*ast.Import[ast.Untyped]); !ast.IsDefinition(last) && !isImport {
			b.Expr = last
			es = es[:len(es)-1]
		}
	}
	b.Stats = es
	return b, nil
}

func (l *loader) function(v *yaml.Node, pos token.Position) (ast.Tree[ast.Untyped], error) {
	it, err := l.items(v, 2, 2)
	if err != nil {
		return nil, err
	}
	params, err := l.params(it[0])
	if err != nil {
		return nil, err
	}
	body, err := l.expr(it[1])
	if err != nil {
		return nil, err
	}
	return &ast.Function[ast.Untyped]{Node: l.node(pos), Params: params, Body: body}, nil
}

func (l *loader) match(v *yaml.Node, pos token.Position) (ast.Tree[ast.Untyped], error) {
	it, err := l.items(v, 1, -1)
	if err != nil {
		return nil, err
	}
	sel, err := l.expr(it[0])
	if err != nil {
		return nil, err
	}
	m := &ast.Match[ast.Untyped]{Node: l.node(pos), Selector: sel}
	for _, c := range it[1:] {
		kind, cv, ok := single(c)
		if !ok || kind != "case" {
			return nil, l.errorf(c, "expected {case: [pattern, guard?, body]}")
		}
		parts, err := l.items(cv, 2, 3)
		if err != nil {
			return nil, err
		}
		es, err := l.exprs(parts)
		if err != nil {
			return nil, err
		}
		cd := &ast.CaseDef[ast.Untyped]{Node: l.node(l.pos(c)), Pat: es[0], Body: es[len(es)-1]}
		if len(es) == 3 {
			cd.Guard = es[1]
		}
		m.Cases = append(m.Cases, cd)
	}
	return m, nil
}

var modFlags = map[string]symbols.Flags{
	"private":  symbols.Private,
	"implicit": symbols.Implicit,
	"case":     symbols.Case,
	"abstract": symbols.Deferred,
	"var":      symbols.Mutable,
}

func (l *loader) mods(n *yaml.Node) (ast.Mods, error) {
	var m ast.Mods
	if isNull(n) {
		return m, nil
	}
	it, err := l.items(n, 0, -1)
	if err != nil {
		return m, err
	}
	for _, x := range it {
		f, ok := modFlags[x.Value]
		if !ok {
			return m, l.errorf(x, "unknown modifier %q", x.Value)
		}
		m.Flags |= f
	}
	return m, nil
}

func (l *loader) typ(n *yaml.Node) (ast.Tree[ast.Untyped], error) {
	if n.Kind == yaml.ScalarNode {
		return l.parseTypeString(n.Value, l.pos(n))
	}
	kind, v, ok := single(n)
	if !ok {
		return nil, l.errorf(n, "expected a type")
	}
	pos := l.pos(n)
	switch kind {
	case "tid":
		return &ast.TypeIdent[ast.Untyped]{Node: l.node(pos), Name: v.Value}, nil
	case "tsel":
		it, err := l.items(v, 2, 2)
		if err != nil {
			return nil, err
		}
		q, err := l.expr(it[0])
		if err != nil {
			return nil, err
		}
		return &ast.TypeSelect[ast.Untyped]{Node: l.node(pos), Qualifier: q, Name: it[1].Value}, nil
	case "tapp":
		it, err := l.items(v, 1, -1)
		if err != nil {
			return nil, err
		}
		ts, err := l.types(it)
		if err != nil {
			return nil, err
		}
		return &ast.AppliedTypeTree[ast.Untyped]{Node: l.node(pos), Tpt: ts[0], Args: ts[1:]}, nil
	case "tfun":
		it, err := l.items(v, 1, -1)
		if err != nil {
			return nil, err
		}
		ts, err := l.types(it)
		if err != nil {
			return nil, err
		}
		return &ast.FunctionTypeTree[ast.Untyped]{Node: l.node(pos), Params: ts[:len(ts)-1], Result: ts[len(ts)-1]}, nil
	case "tbounds":
		f, err := l.fields(v, "lo", "hi")
		if err != nil {
			return nil, err
		}
		b := &ast.TypeBoundsTree[ast.Untyped]{Node: l.node(pos)}
		if lo, ok := f["lo"]; ok {
			if b.Lo, err = l.typ(lo); err != nil {
				return nil, err
			}
		}
		if hi, ok := f["hi"]; ok {
			if b.Hi, err = l.typ(hi); err != nil {
				return nil, err
			}
		}
		return b, nil
	case "inferred":
		return &ast.InferredTypeTree[ast.Untyped]{Node: l.node(pos)}, nil
	}
	return nil, l.errorf(n, "unknown type kind %q", kind)
}

func (l *loader) types(ns []*yaml.Node) ([]ast.Tree[ast.Untyped], error) {
	out := make([]ast.Tree[ast.Untyped], 0, len(ns))
	for _, n := range ns {
		t, err := l.typ(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (l *loader) optType(n *yaml.Node) (ast.Tree[ast.Untyped], error) {
	if isNull(n) {
		return nil, nil
	}
	return l.typ(n)
}
