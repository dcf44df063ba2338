package exports

import "strings"

// LeafPath is a leaf together with the keys leading to it from the root.
type LeafPath struct {
	Keys []string
	Leaf *Leaf
}

// Dotted joins the keys with dots, e.g. "math.square". A root leaf has an
// empty dotted name.
func (p LeafPath) Dotted() string { return strings.Join(p.Keys, ".") }

// Leaves returns every leaf under n in depth-first source order.
func Leaves(n Node) []LeafPath {
	var out []LeafPath
	var walk func(Node, []string)
	walk = func(n Node, keys []string) {
		switch n := n.(type) {
		case *Leaf:
			out = append(out, LeafPath{Keys: append([]string(nil), keys...), Leaf: n})
		case *Group:
			for _, e := range n.Entries {
				walk(e.Node, append(keys, e.Key))
			}
		}
	}
	walk(n, nil)
	return out
}

// Find returns the leaf reached by the dotted path, e.g. "math.square".
func Find(n Node, dotted string) (*Leaf, bool) {
	if dotted != "" {
		for _, key := range strings.Split(dotted, ".") {
			g, ok := n.(*Group)
			if !ok {
				return nil, false
			}
			if n, ok = g.Lookup(key); !ok {
				return nil, false
			}
		}
	}
	leaf, ok := n.(*Leaf)
	return leaf, ok
}
