package treesitter

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/automatique/autoapi/oracle"
)

// Helpers over the concrete syntax tree. Every node carries the source it
// was parsed from so annotation text parsed separately (JSDoc types) can be
// resolved by the same code.

func content(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

func pos(n *sitter.Node) oracle.Position {
	if n == nil {
		return oracle.Position{}
	}
	p := n.StartPoint()
	return oracle.Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// hasToken reports whether n has a direct child of the given type,
// typically an anonymous keyword such as "async" or "default".
func hasToken(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && c.Type() == typ {
			return true
		}
	}
	return false
}

func firstNamed(n *sitter.Node) *sitter.Node {
	children := namedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

func lastNamed(n *sitter.Node) *sitter.Node {
	children := namedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[len(children)-1]
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// propertyKey returns the name of a property key node and whether it is
// computed.
func propertyKey(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
		return unquote(content(n, src)), false
	case "computed_property_name":
		return content(n, src), true
	default:
		return content(n, src), false
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"' || s[0] == '`') && s[len(s)-1] == s[0] {
		if s[0] == '"' {
			if u, err := strconv.Unquote(s); err == nil {
				return u
			}
		}
		return s[1 : len(s)-1]
	}
	return s
}

// compact collapses whitespace runs so multi-line annotations render on one
// line.
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isFunctionNode(typ string) bool {
	switch typ {
	case "arrow_function",
		"function", "function_expression",
		"generator_function", "generator_function_expression",
		"function_declaration", "generator_function_declaration",
		"method_definition":
		return true
	}
	return false
}

// unwrapExpression strips parentheses and type-level wrappers that do not
// change which value is exported.
func unwrapExpression(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			n = firstNamed(n)
		case "type_assertion":
			n = lastNamed(n)
		default:
			return n
		}
	}
	return n
}
