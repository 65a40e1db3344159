package source

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/token"
)

// typeParser reads the compact type notation allowed in fixture type
// positions: Int, a.b.C, Box[Int, ?], (Int, String) => Boolean, Int => Int.
type typeParser struct {
	src  string
	pos  int
	at   token.Position
	node func() ast.Node[ast.Untyped]
}

func (l *loader) parseTypeString(s string, at token.Position) (ast.Tree[ast.Untyped], error) {
	p := &typeParser{src: s, at: at, node: func() ast.Node[ast.Untyped] { return l.node(at) }}
	t, err := p.typ()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

func (p *typeParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: type %q: %s", p.at, p.src, fmt.Sprintf(format, args...))
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) peek(s string) bool {
	p.skipSpace()
	return strings.HasPrefix(p.src[p.pos:], s)
}

func (p *typeParser) expect(s string) error {
	if !p.peek(s) {
		return p.errorf("expected %q at offset %d", s, p.pos)
	}
	p.pos += len(s)
	return nil
}

func (p *typeParser) typ() (ast.Tree[ast.Untyped], error) {
	if p.peek("(") {
		p.pos++
		var params []ast.Tree[ast.Untyped]
		for !p.peek(")") {
			t, err := p.typ()
			if err != nil {
				return nil, err
			}
			params = append(params, t)
			if p.peek(",") {
				p.pos++
			}
		}
		p.pos++
		if err := p.expect("=>"); err != nil {
			return nil, err
		}
		res, err := p.typ()
		if err != nil {
			return nil, err
		}
		return &ast.FunctionTypeTree[ast.Untyped]{Node: p.node(), Params: params, Result: res}, nil
	}
	t, err := p.simple()
	if err != nil {
		return nil, err
	}
	if p.peek("=>") {
		p.pos += 2
		res, err := p.typ()
		if err != nil {
			return nil, err
		}
		return &ast.FunctionTypeTree[ast.Untyped]{Node: p.node(), Params: []ast.Tree[ast.Untyped]{t}, Result: res}, nil
	}
	return t, nil
}

func (p *typeParser) simple() (ast.Tree[ast.Untyped], error) {
	if p.peek("?") {
		p.pos++
		return &ast.TypeBoundsTree[ast.Untyped]{Node: p.node()}, nil
	}
	path := p.ident()
	if path == "" {
		return nil, p.errorf("expected a type name at offset %d", p.pos)
	}
	parts := strings.Split(path, ".")
	var t ast.Tree[ast.Untyped]
	if len(parts) == 1 {
		t = &ast.TypeIdent[ast.Untyped]{Node: p.node(), Name: parts[0]}
	} else {
		var qual ast.Tree[ast.Untyped] = &ast.Ident[ast.Untyped]{Node: p.node(), Name: parts[0]}
		for _, part := range parts[1 : len(parts)-1] {
			qual = &ast.Select[ast.Untyped]{Node: p.node(), Qualifier: qual, Name: part}
		}
		t = &ast.TypeSelect[ast.Untyped]{Node: p.node(), Qualifier: qual, Name: parts[len(parts)-1]}
	}
	if p.peek("[") {
		p.pos++
		var args []ast.Tree[ast.Untyped]
		for !p.peek("]") {
			a, err := p.typ()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek(",") {
				p.pos++
			} else if !p.peek("]") {
				return nil, p.errorf("expected , or ] at offset %d", p.pos)
			}
		}
		p.pos++
		t = &ast.AppliedTypeTree[ast.Untyped]{Node: p.node(), Tpt: t, Args: args}
	}
	return t, nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '$' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}
