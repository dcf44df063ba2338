// Package exports extracts the tree of exported functions from a module's
// single default-export surface.
//
// The exported expression is classified recursively:
//   - object literal: a Group of its properties
//   - identifier: resolved through the module symbol table
//   - function, arrow function or method: a Leaf
//
// Anything else fails with an unrecognized export shape error.
package exports

import (
	"fmt"
	"strings"

	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/oracle"
)

// Node is either a *Group or a *Leaf.
type Node interface {
	Pos() oracle.Position
	node()
}

// Entry is one named member of a Group.
type Entry struct {
	Key  string
	Node Node
}

// Group maps keys to child nodes. Keys are unique; Entries keep source order.
type Group struct {
	Entries []Entry
	pos     oracle.Position
}

func (g *Group) Pos() oracle.Position { return g.pos }
func (*Group) node()                  {}

// Lookup returns the child stored under key.
func (g *Group) Lookup(key string) (Node, bool) {
	for _, e := range g.Entries {
		if e.Key == key {
			return e.Node, true
		}
	}
	return nil, false
}

// set adds or replaces key. A replaced key keeps its original position, which
// matches how object literals order duplicate keys.
func (g *Group) set(key string, n Node) {
	for i := range g.Entries {
		if g.Entries[i].Key == key {
			g.Entries[i].Node = n
			return
		}
	}
	g.Entries = append(g.Entries, Entry{Key: key, Node: n})
}

// Leaf is one exported function.
type Leaf struct {
	Func *oracle.Function

	// Binding is the top-level name the function was reached through, if any.
	Binding string

	// Scope is the module symbol table the leaf was resolved in.
	Scope *Scope
}

func (l *Leaf) Pos() oracle.Position { return l.Func.Pos }
func (*Leaf) node()                  {}

// Tree is the extracted export surface of a module.
type Tree struct {
	Root   Node
	Export *oracle.ExportStatement
	Scope  *Scope
}

// Extract finds the module's default-export statement and classifies its
// value into a tree.
func Extract(m *oracle.Module) (*Tree, error) {
	if m == nil {
		return nil, apierr.New(apierr.CodeNoExportFound, "No default export found")
	}

	var found []*oracle.ExportStatement
	for _, s := range m.Statements {
		if es, ok := s.(*oracle.ExportStatement); ok {
			found = append(found, es)
		}
	}
	switch len(found) {
	case 0:
		return nil, apierr.New(apierr.CodeNoExportFound,
			"No default export found; add `export default { ... }` to the entry file").
			WithDetail("file", m.Path)
	case 1:
	default:
		lines := make([]string, len(found))
		for i, es := range found {
			lines[i] = fmt.Sprintf("%s at %s", es.Form, es.Pos)
		}
		return nil, apierr.Errorf(apierr.CodeMultipleExport,
			"Multiple default exports found: %s", strings.Join(lines, ", ")).
			WithDetail("file", m.Path)
	}

	scope := NewScope(m)
	x := &extractor{scope: scope, visiting: make(map[string]bool)}
	root, err := x.classify(found[0].Value)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root, Export: found[0], Scope: scope}, nil
}

type extractor struct {
	scope *Scope

	// visiting holds the identifiers being resolved on the current path.
	visiting map[string]bool

	// binding is the identifier that led to the expression being classified.
	binding string
}

func (x *extractor) classify(e oracle.Expr) (Node, error) {
	switch e := e.(type) {
	case nil:
		return nil, apierr.New(apierr.CodeUnrecognizedExportShape, "Export value is missing")
	case *oracle.FunctionExpr:
		return &Leaf{Func: e.Func, Binding: x.binding, Scope: x.scope}, nil
	case *oracle.ObjectLit:
		return x.object(e)
	case *oracle.Ident:
		return x.ident(e)
	case *oracle.OtherExpr:
		return nil, unrecognized(e.Pos, e.Kind, e.Text)
	}
	return nil, unrecognized(e.ExprPos(), fmt.Sprintf("%T", e), "")
}

func (x *extractor) object(o *oracle.ObjectLit) (Node, error) {
	g := &Group{pos: o.Pos}
	for _, p := range o.Props {
		switch {
		case p.Spread:
			return nil, unrecognized(p.Pos, "spread element", p.Key)
		case p.Computed:
			return nil, unrecognized(p.Pos, "computed property", p.Key)
		}

		prev := x.binding
		x.binding = ""
		child, err := x.classify(p.Value)
		x.binding = prev
		if err != nil {
			return nil, withKey(err, p.Key)
		}
		g.set(p.Key, child)
	}
	return g, nil
}

func (x *extractor) ident(id *oracle.Ident) (Node, error) {
	if x.visiting[id.Name] {
		return nil, apierr.Errorf(apierr.CodeUnrecognizedExportShape,
			"Export of %s is a circular reference", id.Name).
			WithDetail("shape", "circular reference").
			WithDetail("line", id.Pos.Line)
	}
	sym, ok := x.scope.Lookup(id.Name)
	if !ok {
		return nil, apierr.Errorf(apierr.CodeDeclarationNotFound,
			"Cannot find declaration of %s", id.Name).
			WithDetail("name", id.Name).
			WithDetail("line", id.Pos.Line)
	}

	x.visiting[id.Name] = true
	defer delete(x.visiting, id.Name)

	switch sym.Kind {
	case SymbolFunction:
		return &Leaf{Func: sym.Func, Binding: id.Name, Scope: x.scope}, nil
	case SymbolVariable:
		if sym.Init == nil {
			return nil, unrecognized(sym.Pos, "uninitialized variable", id.Name)
		}
		prev := x.binding
		x.binding = id.Name
		defer func() { x.binding = prev }()
		return x.classify(sym.Init)
	case SymbolClass:
		return nil, unrecognized(sym.Pos, "class", id.Name)
	case SymbolImport:
		return nil, unrecognized(sym.Pos, "imported binding", id.Name)
	}
	return nil, unrecognized(sym.Pos, sym.Kind.String(), id.Name)
}

func unrecognized(p oracle.Position, shape, text string) *apierr.Error {
	msg := fmt.Sprintf("Unrecognized export shape: %s", shape)
	if text != "" {
		msg += fmt.Sprintf(" (%s)", text)
	}
	return apierr.New(apierr.CodeUnrecognizedExportShape, msg).
		WithDetail("shape", shape).
		WithDetail("line", p.Line)
}

// withKey prefixes the export path detail with key.
func withKey(err error, key string) error {
	e := apierr.From(err)
	if path, ok := e.Details["path"].(string); ok {
		return e.WithDetail("path", key+"."+path)
	}
	return e.WithDetail("path", key)
}
