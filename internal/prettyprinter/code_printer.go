package prettyprinter

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typesystem"
)

// --- Code Printer (output looks like source code) ---

// Operator precedence (higher = binds tighter)
var operatorPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3,
	"!=": 3,
	"<":  4,
	">":  4,
	"<=": 4,
	">=": 4,
	"|":  5,
	"^":  5,
	"&":  5,
	"+":  7,
	"-":  7,
	"*":  8,
	"/":  8,
	"%":  8,
}

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return 10
}

func isOperator(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' {
			return false
		}
	}
	return true
}

// CodePrinter renders trees as source text. Typed trees print the types
// the typer assigned: definitions always, other expressions when
// ShowTypes is set.
type CodePrinter[A ast.Annotation] struct {
	buf    bytes.Buffer
	indent int

	ShowTypes bool
}

func NewCodePrinter() *CodePrinter[ast.Untyped] {
	return &CodePrinter[ast.Untyped]{}
}

func NewTypedPrinter(showTypes bool) *CodePrinter[ast.Typed] {
	return &CodePrinter[ast.Typed]{ShowTypes: showTypes}
}

// Print renders one tree; statements of a package are separated by newlines.
func (p *CodePrinter[A]) Print(t ast.Tree[A]) string {
	p.buf.Reset()
	p.indent = 0
	if pkg, ok := t.(*ast.PackageDef[A]); ok {
		p.printPackage(pkg)
	} else {
		p.printTree(t, 0, false)
	}
	return p.buf.String()
}

func (p *CodePrinter[A]) write(s string) { p.buf.WriteString(s) }

func (p *CodePrinter[A]) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

func (p *CodePrinter[A]) newline() {
	p.buf.WriteByte('\n')
	p.writeIndent()
}

// typed returns the annotation of t when A is Typed.
func typed[A ast.Annotation](t ast.Tree[A]) (ast.Typed, bool) {
	ann, ok := any(t.Header().Ann).(ast.Typed)
	return ann, ok
}

func symInfo(ann ast.Typed) typesystem.Type {
	if ann.Sym == nil {
		return nil
	}
	info, err := ann.Sym.Info()
	if err != nil {
		return nil
	}
	return info
}

func (p *CodePrinter[A]) printPackage(pkg *ast.PackageDef[A]) {
	if len(pkg.Pid) > 0 {
		p.write("package " + strings.Join(pkg.Pid, "."))
		p.buf.WriteByte('\n')
		if len(pkg.Stats) > 0 {
			p.buf.WriteByte('\n')
		}
	}
	for i, s := range pkg.Stats {
		if i > 0 {
			p.buf.WriteByte('\n')
		}
		p.printTree(s, 0, false)
		p.buf.WriteByte('\n')
	}
}

func (p *CodePrinter[A]) printStats(stats []ast.Tree[A], expr ast.Tree[A]) {
	p.write("{")
	p.indent++
	for _, s := range stats {
		p.newline()
		p.printTree(s, 0, false)
	}
	if expr != nil {
		p.newline()
		p.printTree(expr, 0, false)
	}
	p.indent--
	p.newline()
	p.write("}")
}

func (p *CodePrinter[A]) printList(ts []ast.Tree[A], sep string) {
	for i, t := range ts {
		if i > 0 {
			p.write(sep)
		}
		p.printTree(t, 0, false)
	}
}

// printTree prints a tree, adding parentheses only if needed.
func (p *CodePrinter[A]) printTree(t ast.Tree[A], parentPrec int, isRight bool) {
	if t == nil {
		p.write("<???>")
		return
	}
	if ann, ok := typed(t); ok && p.ShowTypes && showsType(t) && ann.Type != nil {
		if _, none := ann.Type.(typesystem.TNone); !none {
			p.write("(")
			p.printShape(t, 0, false)
			p.write(": " + ann.Type.String() + ")")
			return
		}
	}
	p.printShape(t, parentPrec, isRight)
}

func showsType[A ast.Annotation](t ast.Tree[A]) bool {
	switch t.(type) {
	case *ast.ValDef[A], *ast.DefDef[A], *ast.TypeDef[A], *ast.ClassDef[A], *ast.ModuleDef[A],
		*ast.Import[A], *ast.PackageDef[A], *ast.CaseDef[A],
		*ast.TypeIdent[A], *ast.TypeSelect[A], *ast.AppliedTypeTree[A], *ast.FunctionTypeTree[A],
		*ast.TypeBoundsTree[A], *ast.InferredTypeTree[A]:
		return false
	}
	return true
}

func (p *CodePrinter[A]) printShape(t ast.Tree[A], parentPrec int, isRight bool) {
	switch e := t.(type) {
	case *ast.ValDef[A]:
		p.printValDef(e)
	case *ast.DefDef[A]:
		p.printDefDef(e)
	case *ast.TypeDef[A]:
		p.write("type ")
		p.printTypeParam(e)
	case *ast.ClassDef[A]:
		p.printClassDef(e)
	case *ast.ModuleDef[A]:
		p.write("object " + e.Name)
		p.printTemplate(e.Parents, e.Body)
	case *ast.Import[A]:
		p.printImport(e)
	case *ast.PackageDef[A]:
		p.write("package " + strings.Join(e.Pid, ".") + " ")
		p.printStats(e.Stats, nil)

	case *ast.Ident[A]:
		p.write(e.Name)
	case *ast.Select[A]:
		p.printTree(e.Qualifier, 11, false)
		p.write("." + e.Name)
	case *ast.Apply[A]:
		p.printApply(e, parentPrec, isRight)
	case *ast.TypeApply[A]:
		p.printTree(e.Fun, 11, false)
		p.write("[")
		p.printList(e.Args, ", ")
		p.write("]")
	case *ast.Literal[A]:
		p.write(e.Value.String())
	case *ast.New[A]:
		p.write("new ")
		p.printTree(e.Tpt, 0, false)
	case *ast.Ascription[A]:
		p.write("(")
		p.printTree(e.Expr, 0, false)
		p.write(": ")
		p.printTree(e.Tpt, 0, false)
		p.write(")")
	case *ast.Assign[A]:
		p.printTree(e.Lhs, 0, false)
		p.write(" = ")
		p.printTree(e.Rhs, 0, false)
	case *ast.Block[A]:
		p.printStats(e.Stats, e.Expr)
	case *ast.If[A]:
		p.write("if (")
		p.printTree(e.Cond, 0, false)
		p.write(") ")
		p.printTree(e.Then, 0, false)
		if e.Else != nil {
			p.write(" else ")
			p.printTree(e.Else, 0, false)
		}
	case *ast.Function[A]:
		p.printFunction(e)
	case *ast.Match[A]:
		p.printTree(e.Selector, 11, false)
		p.write(" match {")
		p.indent++
		for _, c := range e.Cases {
			p.newline()
			p.printCase(c)
		}
		p.indent--
		p.newline()
		p.write("}")
	case *ast.CaseDef[A]:
		p.printCase(e)
	case *ast.Alternative[A]:
		p.printList(e.Trees, " | ")
	case *ast.Bind[A]:
		p.write(e.Name + " @ ")
		p.printTree(e.Body, 11, false)
	case *ast.Return[A]:
		p.write("return")
		if e.Expr != nil {
			p.write(" ")
			p.printTree(e.Expr, 0, false)
		}
	case *ast.This[A]:
		if e.Qual != "" {
			p.write(e.Qual + ".")
		}
		p.write("this")
	case *ast.Super[A]:
		if e.Qual != "" {
			p.write(e.Qual + ".")
		}
		p.write("super")
		if e.Mix != "" {
			p.write("[" + e.Mix + "]")
		}
	case *ast.ErrorTree[A]:
		p.write("<error>")

	case *ast.InfixOp[A]:
		p.printInfix(e.Left, e.Op, e.Right, parentPrec, isRight)
	case *ast.PrefixOp[A]:
		p.write(e.Op)
		p.printTree(e.Operand, 11, false)
	case *ast.Parens[A]:
		p.write("(")
		p.printList(e.Exprs, ", ")
		p.write(")")

	case *ast.TypeIdent[A]:
		p.printTypeTree(t, e.Name)
	case *ast.TypeSelect[A]:
		p.printTree(e.Qualifier, 11, false)
		p.write("." + e.Name)
	case *ast.AppliedTypeTree[A]:
		p.printTree(e.Tpt, 11, false)
		p.write("[")
		p.printList(e.Args, ", ")
		p.write("]")
	case *ast.FunctionTypeTree[A]:
		if len(e.Params) == 1 {
			p.printTree(e.Params[0], 11, false)
		} else {
			p.write("(")
			p.printList(e.Params, ", ")
			p.write(")")
		}
		p.write(" => ")
		p.printTree(e.Result, 0, false)
	case *ast.TypeBoundsTree[A]:
		p.write("?")
		p.printBounds(e)
	case *ast.InferredTypeTree[A]:
		p.printTypeTree(t, "_")
	default:
		p.write("<???>")
	}
}

// printTypeTree prints the resolved type of a typed type tree, or name.
func (p *CodePrinter[A]) printTypeTree(t ast.Tree[A], name string) {
	if ann, ok := typed(t); ok && ann.Type != nil {
		if _, none := ann.Type.(typesystem.TNone); !none {
			p.write(ann.Type.String())
			return
		}
	}
	p.write(name)
}

func (p *CodePrinter[A]) printBounds(b *ast.TypeBoundsTree[A]) {
	if b.Lo != nil {
		p.write(" >: ")
		p.printTree(b.Lo, 0, false)
	}
	if b.Hi != nil {
		p.write(" <: ")
		p.printTree(b.Hi, 0, false)
	}
}

func (p *CodePrinter[A]) printMods(m ast.Mods) {
	if m.Is(symbols.Private) {
		p.write("private ")
	}
	if m.Is(symbols.Implicit) {
		p.write("implicit ")
	}
	if m.Is(symbols.Case) {
		p.write("case ")
	}
}

// printDeclType prints ": T" for a definition: the written type, or in a
// typed tree the type the typer inferred.
func (p *CodePrinter[A]) printDeclType(def ast.Tree[A], tpt ast.Tree[A], infer func(typesystem.Type) typesystem.Type) {
	if tpt != nil {
		if _, inferred := tpt.(*ast.InferredTypeTree[A]); !inferred {
			p.write(": ")
			p.printTree(tpt, 0, false)
			return
		}
	}
	ann, ok := typed(def)
	if !ok {
		return
	}
	if tp := symInfo(ann); tp != nil {
		if infer != nil {
			tp = infer(tp)
		}
		if tp != nil {
			p.write(": " + tp.String())
		}
	}
}

func (p *CodePrinter[A]) printValDef(v *ast.ValDef[A]) {
	p.printMods(v.Mods)
	if !v.Mods.Is(symbols.Param) {
		if v.Mods.Is(symbols.Mutable) {
			p.write("var ")
		} else {
			p.write("val ")
		}
	}
	p.write(v.Name)
	p.printDeclType(v, v.Tpt, func(tp typesystem.Type) typesystem.Type {
		if e, ok := tp.(typesystem.TExpr); ok {
			return e.ReturnType
		}
		return tp
	})
	if v.Rhs != nil {
		p.write(" = ")
		p.printTree(v.Rhs, 0, false)
	}
}

func (p *CodePrinter[A]) printParams(params []*ast.ValDef[A]) {
	p.write("(")
	for i, v := range params {
		if i > 0 {
			p.write(", ")
		}
		if i == 0 && v.Mods.Is(symbols.Implicit) {
			p.write("implicit ")
		}
		p.write(v.Name)
		p.printDeclType(v, v.Tpt, nil)
	}
	p.write(")")
}

func (p *CodePrinter[A]) printTypeParam(td *ast.TypeDef[A]) {
	p.write(td.Name)
	p.printTypeParams(td.TypeParams)
	switch rhs := td.Rhs.(type) {
	case nil:
	case *ast.TypeBoundsTree[A]:
		p.printBounds(rhs)
	default:
		p.write(" = ")
		p.printTree(rhs, 0, false)
	}
}

func (p *CodePrinter[A]) printTypeParams(tps []*ast.TypeDef[A]) {
	if len(tps) == 0 {
		return
	}
	p.write("[")
	for i, td := range tps {
		if i > 0 {
			p.write(", ")
		}
		if td.Mods.Is(symbols.Covariant) {
			p.write("+")
		} else if td.Mods.Is(symbols.Contravariant) {
			p.write("-")
		}
		p.printTypeParam(td)
	}
	p.write("]")
}

func (p *CodePrinter[A]) printDefDef(d *ast.DefDef[A]) {
	p.printMods(d.Mods)
	p.write("def " + d.Name)
	p.printTypeParams(d.TypeParams)
	for _, ps := range d.ParamLists {
		p.printParams(ps)
	}
	p.printDeclType(d, d.Tpt, resultOf)
	if d.Rhs != nil {
		p.write(" = ")
		p.printTree(d.Rhs, 0, false)
	}
}

// resultOf strips the parameter lists of a method type.
func resultOf(tp typesystem.Type) typesystem.Type {
	for {
		switch m := tp.(type) {
		case typesystem.TForall:
			tp = m.Type
		case typesystem.TMethod:
			tp = m.ReturnType
		case typesystem.TExpr:
			tp = m.ReturnType
		default:
			return tp
		}
	}
}

func (p *CodePrinter[A]) printClassDef(c *ast.ClassDef[A]) {
	p.printMods(c.Mods)
	p.write("class " + c.Name)
	p.printTypeParams(c.TypeParams)
	if len(c.Params) > 0 || c.Mods.Is(symbols.Case) {
		p.printParams(c.Params)
	}
	p.printTemplate(c.Parents, c.Body)
}

func (p *CodePrinter[A]) printTemplate(parents, body []ast.Tree[A]) {
	if len(parents) > 0 {
		p.write(" extends ")
		p.printList(parents, " with ")
	}
	if len(body) > 0 {
		p.write(" ")
		p.printStats(body, nil)
	}
}

func (p *CodePrinter[A]) printImport(imp *ast.Import[A]) {
	p.write("import ")
	p.printTree(imp.Expr, 11, false)
	p.write(".")
	sels := make([]string, len(imp.Selectors))
	for i, s := range imp.Selectors {
		switch {
		case s.Wildcard:
			sels[i] = "_"
		case s.Rename != "":
			sels[i] = s.Name + " => " + s.Rename
		default:
			sels[i] = s.Name
		}
	}
	if len(sels) == 1 && !strings.Contains(sels[0], "=>") {
		p.write(sels[0])
		return
	}
	p.write("{" + strings.Join(sels, ", ") + "}")
}

func (p *CodePrinter[A]) printApply(a *ast.Apply[A], parentPrec int, isRight bool) {
	if sel, ok := a.Fun.(*ast.Select[A]); ok {
		if n, ok := sel.Qualifier.(*ast.New[A]); ok && sel.Name == config.ConstructorName {
			p.write("new ")
			p.printTree(n.Tpt, 0, false)
			p.write("(")
			p.printList(a.Args, ", ")
			p.write(")")
			return
		}
		if !a.Implicit && len(a.Args) == 1 && isOperator(sel.Name) {
			p.printInfix(sel.Qualifier, sel.Name, a.Args[0], parentPrec, isRight)
			return
		}
	}
	p.printTree(a.Fun, 11, false)
	p.write("(")
	if a.Implicit {
		p.write("implicit ")
	}
	p.printList(a.Args, ", ")
	p.write(")")
}

func (p *CodePrinter[A]) printInfix(left ast.Tree[A], op string, right ast.Tree[A], parentPrec int, isRight bool) {
	prec := getPrecedence(op)
	needParens := prec < parentPrec || prec == parentPrec && isRight
	if needParens {
		p.write("(")
	}
	p.printTree(left, prec, false)
	p.write(" " + op + " ")
	p.printTree(right, prec, true)
	if needParens {
		p.write(")")
	}
}

func (p *CodePrinter[A]) printFunction(f *ast.Function[A]) {
	p.write("(")
	for i, v := range f.Params {
		if i > 0 {
			p.write(", ")
		}
		p.write(v.Name)
		if v.Tpt != nil {
			p.printDeclType(v, v.Tpt, nil)
		} else if ann, ok := typed[A](v); ok && ann.Type != nil {
			p.write(": " + ann.Type.String())
		}
	}
	p.write(") => ")
	p.printTree(f.Body, 0, false)
	if f.SAMTarget != nil {
		p.write(" as " + f.SAMTarget.String())
	}
}

func (p *CodePrinter[A]) printCase(c *ast.CaseDef[A]) {
	p.write("case ")
	p.printTree(c.Pat, 0, false)
	if c.Guard != nil {
		p.write(" if ")
		p.printTree(c.Guard, 0, false)
	}
	p.write(" => ")
	p.printTree(c.Body, 0, false)
}
