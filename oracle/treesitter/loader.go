// Package treesitter implements oracle.Oracle on top of the tree-sitter
// JavaScript and TypeScript grammars.
//
// The loader parses the entry file, reports syntax errors and unresolved type
// names as diagnostics, and answers type questions from annotations, JSDoc
// tags and a local inference pass over function bodies. It does not follow
// imports: imported names resolve to opaque references.
package treesitter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/automatique/autoapi/oracle"
)

// DefaultMaxFileSize is the largest entry file the loader will parse.
const DefaultMaxFileSize = 10 * 1024 * 1024

// Loader is an oracle.Oracle backed by tree-sitter.
type Loader struct {
	logger      *slog.Logger
	maxFileSize int
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMaxFileSize sets the maximum entry file size in bytes.
func WithMaxFileSize(bytes int) Option {
	return func(l *Loader) {
		if bytes > 0 {
			l.maxFileSize = bytes
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		logger:      slog.Default(),
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ oracle.Oracle = (*Loader)(nil)

// Load implements oracle.Oracle.
func (l *Loader) Load(ctx context.Context, root, entry string, lang oracle.Language) (*oracle.Program, error) {
	src, err := os.ReadFile(filepath.Join(root, entry))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry, err)
	}
	prog, err := l.LoadSource(ctx, entry, src, lang)
	if err != nil {
		return nil, err
	}
	prog.Root = root
	return prog, nil
}

// LoadSource parses src as the module file. If lang is empty it is inferred
// from the file extension.
//
// The returned Program's Checker computes types lazily and is not safe for
// concurrent use.
func (l *Loader) LoadSource(ctx context.Context, file string, src []byte, lang oracle.Language) (*oracle.Program, error) {
	if lang == "" {
		inferred, ok := oracle.LanguageFromPath(file)
		if !ok {
			return nil, fmt.Errorf("cannot infer language of %q", file)
		}
		lang = inferred
	}
	if len(src) > l.maxFileSize {
		return nil, fmt.Errorf("%s is %d bytes, larger than the %d byte limit", file, len(src), l.maxFileSize)
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("%s is not valid UTF-8", file)
	}

	// New parser per call; parsers are not safe for concurrent use.
	parser := sitter.NewParser()
	parser.SetLanguage(grammar(file, lang))
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := tree.RootNode()
	types := newResolver(src)
	types.index(root)
	b := newBuilder(ctx, file, src, lang, types)
	module := b.module(root)

	var diags []oracle.Diagnostic
	if root.HasError() {
		diags = append(diags, syntaxErrors(root, src, file)...)
	}
	if lang.Typed() {
		diags = append(diags, types.undeclaredNames(root, file)...)
	}

	l.logger.DebugContext(ctx, "module parsed",
		slog.String("file", file),
		slog.String("language", string(lang)),
		slog.Int("statements", len(module.Statements)),
		slog.Int("diagnostics", len(diags)),
	)

	return &oracle.Program{
		Entry:       file,
		Language:    lang,
		Module:      module,
		Checker:     &checker{b: b, tree: tree},
		Diagnostics: diags,
	}, nil
}

func grammar(file string, lang oracle.Language) *sitter.Language {
	if lang != oracle.TypeScript {
		return javascript.GetLanguage()
	}
	if strings.EqualFold(filepath.Ext(file), ".tsx") {
		return tsx.GetLanguage()
	}
	return typescript.GetLanguage()
}

func syntaxErrors(root *sitter.Node, src []byte, file string) []oracle.Diagnostic {
	var diags []oracle.Diagnostic
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			p := pos(n)
			diags = append(diags, oracle.Diagnostic{
				File: file, Line: p.Line, Column: p.Column,
				Message: fmt.Sprintf("'%s' expected.", n.Type()),
			})
			return
		case n.Type() == "ERROR":
			p := pos(n)
			text := compact(content(n, src))
			if len(text) > 40 {
				text = text[:40] + "..."
			}
			diags = append(diags, oracle.Diagnostic{
				File: file, Line: p.Line, Column: p.Column,
				Message: fmt.Sprintf("Unexpected token near '%s'.", text),
			})
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil && (c.HasError() || c.IsMissing()) {
				walk(c)
			}
		}
	}
	walk(root)
	return diags
}

// checker answers type questions for one loaded module. It keeps the syntax
// tree alive for as long as the Program is referenced.
type checker struct {
	b    *builder
	tree *sitter.Tree
}

func (c *checker) ParamType(fn *oracle.Function, i int) oracle.Type { return c.b.paramType(fn, i) }
func (c *checker) ReturnType(fn *oracle.Function) oracle.Type       { return c.b.returnType(fn) }

func (c *checker) TypeToString(t oracle.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}
