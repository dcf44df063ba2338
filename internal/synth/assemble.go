package synth

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/automatique/autoapi/internal/exports"
)

// Assembly is the combined output of synthesizing an export tree.
type Assembly struct {
	// Code is every route handler, in export order.
	Code   string
	Routes *MultiRoute

	// Post reports whether any route uses POST.
	Post bool

	// Promise reports whether any handler carries the promise branch.
	Promise bool
}

// AllGet reports whether every route uses GET.
func (a *Assembly) AllGet() bool { return !a.Post }

// BuildRoutes synthesizes every leaf under node. Leaves are served at
// basePath joined with their keys. A root leaf is served at basePath + "/"
// and invoked as the module itself.
func (s *Synthesizer) BuildRoutes(node exports.Node, basePath string) (*Assembly, error) {
	asm := &Assembly{}
	var code strings.Builder

	if leaf, ok := node.(*exports.Leaf); ok {
		r, err := s.route(leaf, nil, basePath+"/")
		if err != nil {
			return nil, err
		}
		code.WriteString(r.Code)
		asm.add(r)
		asm.Routes = &MultiRoute{Entries: []RouteEntry{{Key: "", Route: r.Record}}}
		asm.Code = code.String()
		return asm, nil
	}

	g, ok := node.(*exports.Group)
	if !ok {
		return nil, fmt.Errorf("unexpected export node %T", node)
	}
	routes, err := s.group(g, basePath, nil, asm, &code)
	if err != nil {
		return nil, err
	}
	asm.Routes = routes
	asm.Code = code.String()
	return asm, nil
}

func (s *Synthesizer) group(g *exports.Group, basePath string, keys []string, asm *Assembly, code *strings.Builder) (*MultiRoute, error) {
	mr := &MultiRoute{Entries: make([]RouteEntry, 0, len(g.Entries))}
	for _, e := range g.Entries {
		path := basePath + "/" + e.Key
		childKeys := append(append([]string(nil), keys...), e.Key)
		switch n := e.Node.(type) {
		case *exports.Group:
			child, err := s.group(n, path, childKeys, asm, code)
			if err != nil {
				return nil, err
			}
			mr.Entries = append(mr.Entries, RouteEntry{Key: e.Key, Export: child})
		case *exports.Leaf:
			r, err := s.route(n, childKeys, path)
			if err != nil {
				return nil, err
			}
			if code.Len() > 0 {
				code.WriteString("\n")
			}
			code.WriteString(r.Code)
			asm.add(r)
			mr.Entries = append(mr.Entries, RouteEntry{Key: e.Key, Route: r.Record})
		}
	}
	return mr, nil
}

func (s *Synthesizer) route(leaf *exports.Leaf, keys []string, path string) (*Route, error) {
	alias := Alias(keys)
	r, err := s.Route(leaf, alias, path)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Debug("route synthesized",
			slog.String("alias", alias),
			slog.String("method", string(r.Record.Method)),
			slog.String("path", path),
		)
	}
	return r, nil
}

func (a *Assembly) add(r *Route) {
	if r.Record.Method == POST {
		a.Post = true
	}
	if r.Promise {
		a.Promise = true
	}
}
