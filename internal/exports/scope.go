package exports

import "github.com/automatique/autoapi/oracle"

// SymbolKind classifies a top-level binding.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota // function declaration
	SymbolVariable                   // var, let or const declarator
	SymbolClass                      // class declaration
	SymbolImport                     // name bound by an import
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolVariable:
		return "variable"
	case SymbolClass:
		return "class"
	case SymbolImport:
		return "import"
	default:
		return "unknown"
	}
}

// Symbol is one top-level binding.
type Symbol struct {
	Name string
	Kind SymbolKind
	Func *oracle.Function // SymbolFunction only
	Init oracle.Expr      // SymbolVariable only; nil when uninitialized
	Pos  oracle.Position
}

// Scope is the module-level symbol table. It is built once per module.
type Scope struct {
	symbols map[string]*Symbol
	order   []string
}

// NewScope indexes the top-level declarations of m. When a name is declared
// more than once the last declaration wins, as it does for var bindings.
// Declarations below the export statement are visible too, since function
// declarations hoist.
func NewScope(m *oracle.Module) *Scope {
	s := &Scope{symbols: make(map[string]*Symbol)}
	for _, stmt := range m.Statements {
		switch st := stmt.(type) {
		case *oracle.FunctionDecl:
			if st.Func.Name != "" {
				s.define(&Symbol{Name: st.Func.Name, Kind: SymbolFunction, Func: st.Func, Pos: st.Func.Pos})
			}
		case *oracle.VarDecl:
			for _, d := range st.Declarators {
				s.define(&Symbol{Name: d.Name, Kind: SymbolVariable, Init: d.Init, Pos: d.Pos})
			}
		case *oracle.ClassDecl:
			s.define(&Symbol{Name: st.Name, Kind: SymbolClass, Pos: st.Pos})
		case *oracle.ImportDecl:
			for _, name := range st.Names {
				s.define(&Symbol{Name: name, Kind: SymbolImport, Pos: st.Pos})
			}
		}
	}
	return s
}

func (s *Scope) define(sym *Symbol) {
	if _, ok := s.symbols[sym.Name]; !ok {
		s.order = append(s.order, sym.Name)
	}
	s.symbols[sym.Name] = sym
}

// Lookup returns the binding for name.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	if s == nil {
		return nil, false
	}
	sym, ok := s.symbols[name]
	return sym, ok
}

// Names returns the bound names in declaration order.
func (s *Scope) Names() []string {
	return append([]string(nil), s.order...)
}
