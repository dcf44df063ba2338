package oracle

import "fmt"

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Module is the top level of a source file.
type Module struct {
	Path       string
	Statements []Statement
}

// Statement is a top-level statement.
type Statement interface {
	StmtPos() Position
	stmt()
}

// ExportForm is the syntax used by an export statement.
type ExportForm int

const (
	ExportDefault ExportForm = iota // export default <expr>
	ExportEquals                    // export = <expr>
	ModuleExports                   // module.exports = <expr>
)

func (f ExportForm) String() string {
	switch f {
	case ExportDefault:
		return "export default"
	case ExportEquals:
		return "export ="
	case ModuleExports:
		return "module.exports ="
	default:
		return "unknown"
	}
}

// ExportStatement is a default-export surface of a module.
type ExportStatement struct {
	Form  ExportForm
	Value Expr
	Pos   Position
}

// FunctionDecl is a function declaration. Exported reports whether it was
// declared with a named "export" (not a default export).
type FunctionDecl struct {
	Func     *Function
	Exported bool
}

// VarDecl is a var, let or const declaration.
type VarDecl struct {
	Keyword     string
	Declarators []*Declarator
	Pos         Position
}

// Declarator binds Name to Init. Init is nil for uninitialized bindings.
type Declarator struct {
	Name string
	Init Expr
	Pos  Position
}

// ClassDecl is a class declaration.
type ClassDecl struct {
	Name string
	Pos  Position
}

// ImportDecl binds Names to values defined in another module.
type ImportDecl struct {
	Names  []string
	Source string
	Pos    Position
}

// OtherStatement is any statement the engine does not inspect.
type OtherStatement struct {
	Kind string
	Pos  Position
}

func (s *ExportStatement) StmtPos() Position { return s.Pos }
func (s *FunctionDecl) StmtPos() Position    { return s.Func.Pos }
func (s *VarDecl) StmtPos() Position         { return s.Pos }
func (s *ClassDecl) StmtPos() Position       { return s.Pos }
func (s *ImportDecl) StmtPos() Position      { return s.Pos }
func (s *OtherStatement) StmtPos() Position  { return s.Pos }

func (*ExportStatement) stmt() {}
func (*FunctionDecl) stmt()    {}
func (*VarDecl) stmt()         {}
func (*ClassDecl) stmt()       {}
func (*ImportDecl) stmt()      {}
func (*OtherStatement) stmt()  {}

// Expr is an expression appearing in an export position.
type Expr interface {
	ExprPos() Position
	expr()
}

// ObjectLit is an object literal.
type ObjectLit struct {
	Props []*Property
	Pos   Position
}

// Property is a member of an object literal.
type Property struct {
	Key       string
	Value     Expr // for shorthand properties, an *Ident naming Key
	Shorthand bool
	Method    bool // { key() {} }; Value is a *FunctionExpr
	Spread    bool // { ...value }
	Computed  bool // { [expr]: value }
	Pos       Position
}

// Ident is a reference to a binding.
type Ident struct {
	Name string
	Pos  Position
}

// FunctionExpr is a function expression, arrow function, object method or
// default-exported function declaration.
type FunctionExpr struct {
	Func *Function
}

// OtherExpr is any expression that is not an object, identifier or function,
// such as a literal, call or class.
type OtherExpr struct {
	Kind string
	Text string
	Pos  Position
}

func (e *ObjectLit) ExprPos() Position    { return e.Pos }
func (e *Ident) ExprPos() Position        { return e.Pos }
func (e *FunctionExpr) ExprPos() Position { return e.Func.Pos }
func (e *OtherExpr) ExprPos() Position    { return e.Pos }

func (*ObjectLit) expr()    {}
func (*Ident) expr()        {}
func (*FunctionExpr) expr() {}
func (*OtherExpr) expr()    {}

// Function is a callable definition.
type Function struct {
	Name      string // empty for anonymous functions
	Params    []*Param
	Async     bool
	Generator bool
	Arrow     bool
	Doc       *DocComment // nil when no leading doc comment exists
	Pos       Position
}

// Param is a formal parameter.
type Param struct {
	Name         string
	Optional     bool // declared with ?
	HasDefault   bool // has a default initializer
	Rest         bool // ...name
	Destructured bool // object or array binding pattern; Name is the pattern text
	Pos          Position
}
