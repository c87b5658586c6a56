package shadergen

import (
	"fmt"
	"strconv"
	"strings"
)

// The kernel is assembled as a small GLSL syntax tree and printed once.
// Values reach the source only through typed nodes, so generated names and
// literals never collide with text already in the program.

// Expr is a GLSL expression.
type Expr interface {
	expr() string
}

// Ident is a name reference.
type Ident string

func (i Ident) expr() string { return string(i) }

// Float is a float literal.
type Float float64

func (f Float) expr() string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Int is an int literal.
type Int int

func (i Int) expr() string { return strconv.Itoa(int(i)) }

// Literal is pre-rendered literal text such as a vec4 list.
type Literal string

func (l Literal) expr() string { return string(l) }

// Call is a function or constructor call.
type Call struct {
	Fn   string
	Args []Expr
}

func (c Call) expr() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.expr()
	}
	return c.Fn + "(" + strings.Join(args, ", ") + ")"
}

// Binary is a parenthesized binary operation.
type Binary struct {
	Op   string
	L, R Expr
}

func (b Binary) expr() string { return "(" + b.L.expr() + " " + b.Op + " " + b.R.expr() + ")" }

// Index is an array subscript.
type Index struct {
	X, I Expr
}

func (ix Index) expr() string { return ix.X.expr() + "[" + ix.I.expr() + "]" }

// Swizzle selects vector components.
type Swizzle struct {
	X      Expr
	Fields string
}

func (s Swizzle) expr() string { return s.X.expr() + "." + s.Fields }

// Stmt is a GLSL statement.
type Stmt interface {
	emit(w *writer)
}

// Var declares a local variable; ArrayLen makes it an array.
type Var struct {
	Type     string
	Name     string
	ArrayLen Expr
	Init     Expr
}

func (v Var) emit(w *writer) {
	decl := v.Type + " " + v.Name
	if v.ArrayLen != nil {
		decl += "[" + v.ArrayLen.expr() + "]"
	}
	if v.Init != nil {
		decl += " = " + v.Init.expr()
	}
	w.line(decl + ";")
}

// Assign stores or accumulates into an lvalue. Op defaults to "=".
type Assign struct {
	LHS Expr
	Op  string
	RHS Expr
}

func (a Assign) emit(w *writer) {
	op := a.Op
	if op == "" {
		op = "="
	}
	w.line(a.LHS.expr() + " " + op + " " + a.RHS.expr() + ";")
}

// For is a counted loop: for (int Var = From; Var < To; Var += Step).
type For struct {
	Var      string
	From, To Expr
	Step     int
	Body     []Stmt
}

func (f For) emit(w *writer) {
	step := f.Step
	if step == 0 {
		step = 1
	}
	post := "++" + f.Var
	if step != 1 {
		post = f.Var + " += " + strconv.Itoa(step)
	}
	w.line(fmt.Sprintf("for (int %s = %s; %s < %s; %s) {", f.Var, f.From.expr(), f.Var, f.To.expr(), post))
	w.block(f.Body)
	w.line("}")
}

// Return returns a value.
type Return struct {
	X Expr
}

func (r Return) emit(w *writer) { w.line("return " + r.X.expr() + ";") }

// Decl is a top-level declaration.
type Decl interface {
	emitDecl(w *writer)
}

// Define is a preprocessor define; an empty Value defines a flag.
type Define struct {
	Name  string
	Value Expr
}

func (d Define) emitDecl(w *writer) {
	if d.Value == nil {
		w.line("#define " + d.Name)
		return
	}
	w.line("#define " + d.Name + " " + d.Value.expr())
}

// Uniform declares a uniform, optionally as an array.
type Uniform struct {
	Type     string
	Name     string
	ArrayLen string
}

func (u Uniform) emitDecl(w *writer) {
	if u.ArrayLen != "" {
		w.line(fmt.Sprintf("uniform %s %s[%s];", u.Type, u.Name, u.ArrayLen))
		return
	}
	w.line(fmt.Sprintf("uniform %s %s;", u.Type, u.Name))
}

// Const declares a compile-time constant, optionally as an array.
type Const struct {
	Type     string
	Name     string
	ArrayLen int
	Value    Expr
}

func (c Const) emitDecl(w *writer) {
	if c.ArrayLen > 0 {
		w.line(fmt.Sprintf("const %s %s[%d] = %s[%d](%s);", c.Type, c.Name, c.ArrayLen, c.Type, c.ArrayLen, c.Value.expr()))
		return
	}
	w.line(fmt.Sprintf("const %s %s = %s;", c.Type, c.Name, c.Value.expr()))
}

// InOut declares a stage input or output.
type InOut struct {
	Qualifier string // "in", "out" or a layout-qualified form
	Type      string
	Name      string
}

func (io InOut) emitDecl(w *writer) {
	w.line(fmt.Sprintf("%s %s %s;", io.Qualifier, io.Type, io.Name))
}

// Param is a function parameter.
type Param struct {
	Type string
	Name string
}

// Func is a function definition.
type Func struct {
	Ret    string
	Name   string
	Params []Param
	Body   []Stmt
}

func (f Func) emitDecl(w *writer) {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type + " " + p.Name
	}
	w.line(fmt.Sprintf("%s %s(%s) {", f.Ret, f.Name, strings.Join(params, ", ")))
	w.block(f.Body)
	w.line("}")
	w.blank()
}

// IfDef wraps declarations in #ifdef Name ... #endif.
type IfDef struct {
	Name  string
	Decls []Decl
}

func (d IfDef) emitDecl(w *writer) {
	w.line("#ifdef " + d.Name)
	for _, inner := range d.Decls {
		inner.emitDecl(w)
	}
	w.line("#endif")
}

// Verbatim is fixed source text carried unchanged.
type Verbatim string

func (v Verbatim) emitDecl(w *writer) {
	w.raw(string(v))
}

// Comment is a line comment.
type Comment string

func (c Comment) emitDecl(w *writer) { w.line("// " + string(c)) }

// Program is a complete shader.
type Program struct {
	Version string
	Decls   []Decl
}

// String prints the program.
func (p *Program) String() string {
	w := &writer{}
	w.line("#version " + p.Version)
	for _, d := range p.Decls {
		d.emitDecl(w)
	}
	return w.sb.String()
}

type writer struct {
	sb     strings.Builder
	indent int
}

func (w *writer) line(s string) {
	w.sb.WriteString(strings.Repeat("    ", w.indent))
	w.sb.WriteString(s)
	w.sb.WriteByte('\n')
}

func (w *writer) blank() { w.sb.WriteByte('\n') }

func (w *writer) raw(s string) {
	w.sb.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		w.sb.WriteByte('\n')
	}
}

func (w *writer) block(body []Stmt) {
	w.indent++
	for _, s := range body {
		s.emit(w)
	}
	w.indent--
}
