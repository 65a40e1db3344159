package typer

import (
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typerstate"
	"github.com/funvibe/typer/internal/typesystem"
)

// Mode flags of a context.
type Mode uint8

const (
	ModeExpr    Mode = 0
	ModePattern Mode = 1 << iota
	ModeType
)

func (m Mode) Is(f Mode) bool { return m&f != 0 }

// Context is one link of the typing environment. Links are never mutated
// after creation; every With* call returns a new innermost link. Only the
// typer state behind a context changes.
type Context struct {
	outer *Context

	Owner  *symbols.Symbol
	Scope  *symbols.Scope
	Mode   Mode
	Import *ImportInfo
	Pos    token.Position
	Unit   string
	Gadt   *typesystem.GadtConstraint
	State  *typerstate.State
}

func (c *Context) Outer() *Context { return c.outer }

func (c *Context) link() *Context {
	cp := *c
	cp.outer = c
	return &cp
}

func (c *Context) WithOwner(owner *symbols.Symbol) *Context {
	n := c.link()
	n.Owner = owner
	return n
}

func (c *Context) WithScope(scope *symbols.Scope) *Context {
	n := c.link()
	n.Scope = scope
	return n
}

// WithMode replaces the mode flags.
func (c *Context) WithMode(mode Mode) *Context {
	if c.Mode == mode {
		return c
	}
	n := c.link()
	n.Mode = mode
	return n
}

func (c *Context) WithImport(imp *ImportInfo) *Context {
	n := c.link()
	n.Import = imp
	return n
}

func (c *Context) WithPos(pos token.Position) *Context {
	n := c.link()
	n.Pos = pos
	return n
}

func (c *Context) WithGadt(g *typesystem.GadtConstraint) *Context {
	n := c.link()
	n.Gadt = g
	return n
}

func (c *Context) WithState(s *typerstate.State) *Context {
	if c.State == s {
		return c
	}
	n := c.link()
	n.State = s
	return n
}

// isNewScope reports whether the link introduces declarations of its own,
// that is its scope or owner differs from the next outer link.
func (c *Context) isNewScope() bool {
	if c.outer == nil {
		return true
	}
	if c.Scope != c.outer.Scope {
		return true
	}
	if c.Owner != nil && c.Owner.IsPackage() {
		return false
	}
	return c.Owner != c.outer.Owner
}

// isNewImport reports whether the link introduces an import.
func (c *Context) isNewImport() bool {
	if c.Import == nil {
		return false
	}
	return c.outer == nil || c.outer.Import != c.Import
}

// env is the subtyping environment of the context's current state.
func (t *Typer) env(ctx *Context) *typesystem.Env {
	return &typesystem.Env{Resolver: t.table, Constraints: ctx.State.Constraints(), Gadt: ctx.Gadt}
}
