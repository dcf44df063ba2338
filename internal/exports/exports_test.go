package exports

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/oracle"
	"github.com/automatique/autoapi/oracle/treesitter"
)

func fn(name string) *oracle.Function { return &oracle.Function{Name: name} }

func exportDefault(v oracle.Expr) *oracle.ExportStatement {
	return &oracle.ExportStatement{Form: oracle.ExportDefault, Value: v}
}

func prop(key string, v oracle.Expr) *oracle.Property { return &oracle.Property{Key: key, Value: v} }

// shape renders a node as nested keys so trees can be compared with cmp.
func shape(n Node) any {
	switch n := n.(type) {
	case *Leaf:
		if n.Func.Name != "" {
			return "fn " + n.Func.Name
		}
		return "fn"
	case *Group:
		m := make(map[string]any, len(n.Entries))
		for _, e := range n.Entries {
			m[e.Key] = shape(e.Node)
		}
		return m
	}
	return nil
}

func TestExtract(t *testing.T) {
	square := fn("square")
	tests := []struct {
		name   string
		module *oracle.Module
		want   any
	}{
		{
			name: "object of inline functions",
			module: &oracle.Module{Statements: []oracle.Statement{
				exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
					prop("foo", &oracle.FunctionExpr{Func: fn("")}),
				}}),
			}},
			want: map[string]any{"foo": "fn"},
		},
		{
			name: "shorthand resolves declaration",
			module: &oracle.Module{Statements: []oracle.Statement{
				&oracle.FunctionDecl{Func: square},
				exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
					{Key: "square", Value: &oracle.Ident{Name: "square"}, Shorthand: true},
				}}),
			}},
			want: map[string]any{"square": "fn square"},
		},
		{
			name: "identifier chain through variables",
			module: &oracle.Module{Statements: []oracle.Statement{
				&oracle.FunctionDecl{Func: square},
				&oracle.VarDecl{Keyword: "const", Declarators: []*oracle.Declarator{
					{Name: "math", Init: &oracle.ObjectLit{Props: []*oracle.Property{
						prop("sq", &oracle.Ident{Name: "square"}),
					}}},
					{Name: "api", Init: &oracle.ObjectLit{Props: []*oracle.Property{
						prop("math", &oracle.Ident{Name: "math"}),
					}}},
				}},
				exportDefault(&oracle.Ident{Name: "api"}),
			}},
			want: map[string]any{"math": map[string]any{"sq": "fn square"}},
		},
		{
			name: "root function",
			module: &oracle.Module{Statements: []oracle.Statement{
				&oracle.ExportStatement{Form: oracle.ModuleExports, Value: &oracle.FunctionExpr{Func: fn("handler")}},
			}},
			want: "fn handler",
		},
		{
			name: "methods are leaves",
			module: &oracle.Module{Statements: []oracle.Statement{
				exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
					{Key: "hello", Value: &oracle.FunctionExpr{Func: fn("hello")}, Method: true},
				}}),
			}},
			want: map[string]any{"hello": "fn hello"},
		},
		{
			name: "duplicate key keeps last value",
			module: &oracle.Module{Statements: []oracle.Statement{
				exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
					prop("a", &oracle.FunctionExpr{Func: fn("first")}),
					prop("b", &oracle.FunctionExpr{Func: fn("b")}),
					prop("a", &oracle.FunctionExpr{Func: fn("second")}),
				}}),
			}},
			want: map[string]any{"a": "fn second", "b": "fn b"},
		},
		{
			name: "empty object",
			module: &oracle.Module{Statements: []oracle.Statement{
				exportDefault(&oracle.ObjectLit{}),
			}},
			want: map[string]any{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Extract(tt.module)
			if err != nil {
				t.Fatalf("Extract() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, shape(tree.Root)); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name   string
		module *oracle.Module
		want   *apierr.Error
		msg    string
	}{
		{
			name:   "no export",
			module: &oracle.Module{Statements: []oracle.Statement{&oracle.FunctionDecl{Func: fn("f")}}},
			want:   apierr.ErrNoExportFound,
		},
		{
			name: "two exports",
			module: &oracle.Module{Statements: []oracle.Statement{
				exportDefault(&oracle.ObjectLit{}),
				&oracle.ExportStatement{Form: oracle.ModuleExports, Value: &oracle.ObjectLit{}},
			}},
			want: apierr.ErrMultipleExport,
			msg:  "module.exports",
		},
		{
			name: "literal value",
			module: &oracle.Module{Statements: []oracle.Statement{
				exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
					prop("foo", &oracle.OtherExpr{Kind: "literal", Text: "5"}),
				}}),
			}},
			want: apierr.ErrUnrecognizedExportShape,
			msg:  "literal",
		},
		{
			name: "class declaration",
			module: &oracle.Module{Statements: []oracle.Statement{
				&oracle.ClassDecl{Name: "Service"},
				exportDefault(&oracle.Ident{Name: "Service"}),
			}},
			want: apierr.ErrUnrecognizedExportShape,
			msg:  "class",
		},
		{
			name: "imported binding",
			module: &oracle.Module{Statements: []oracle.Statement{
				&oracle.ImportDecl{Names: []string{"api"}, Source: "./api"},
				exportDefault(&oracle.Ident{Name: "api"}),
			}},
			want: apierr.ErrUnrecognizedExportShape,
			msg:  "imported",
		},
		{
			name: "spread",
			module: &oracle.Module{Statements: []oracle.Statement{
				exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
					{Key: "rest", Value: &oracle.Ident{Name: "rest"}, Spread: true},
				}}),
			}},
			want: apierr.ErrUnrecognizedExportShape,
			msg:  "spread",
		},
		{
			name: "computed key",
			module: &oracle.Module{Statements: []oracle.Statement{
				exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
					{Key: "[name]", Value: &oracle.FunctionExpr{Func: fn("")}, Computed: true},
				}}),
			}},
			want: apierr.ErrUnrecognizedExportShape,
			msg:  "computed",
		},
		{
			name: "missing declaration",
			module: &oracle.Module{Statements: []oracle.Statement{
				exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
					{Key: "ghost", Value: &oracle.Ident{Name: "ghost"}, Shorthand: true},
				}}),
			}},
			want: apierr.ErrDeclarationNotFound,
			msg:  "ghost",
		},
		{
			name: "uninitialized variable",
			module: &oracle.Module{Statements: []oracle.Statement{
				&oracle.VarDecl{Keyword: "let", Declarators: []*oracle.Declarator{{Name: "api"}}},
				exportDefault(&oracle.Ident{Name: "api"}),
			}},
			want: apierr.ErrUnrecognizedExportShape,
		},
		{
			name: "circular variables",
			module: &oracle.Module{Statements: []oracle.Statement{
				&oracle.VarDecl{Keyword: "var", Declarators: []*oracle.Declarator{
					{Name: "a", Init: &oracle.Ident{Name: "b"}},
					{Name: "b", Init: &oracle.ObjectLit{Props: []*oracle.Property{prop("self", &oracle.Ident{Name: "a"})}}},
				}},
				exportDefault(&oracle.Ident{Name: "a"}),
			}},
			want: apierr.ErrUnrecognizedExportShape,
			msg:  "circular",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.module)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Extract() error = %v, want code %s", err, tt.want.Code)
			}
			if tt.msg != "" && !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestExtractErrorPath(t *testing.T) {
	m := &oracle.Module{Statements: []oracle.Statement{
		exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
			prop("math", &oracle.ObjectLit{Props: []*oracle.Property{
				prop("pi", &oracle.OtherExpr{Kind: "literal", Text: "3.14"}),
			}}),
		}}),
	}}
	_, err := Extract(m)
	var e *apierr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *apierr.Error, got %v", err)
	}
	if got := e.Details["path"]; got != "math.pi" {
		t.Errorf("path detail = %v, want math.pi", got)
	}
}

func TestLeavesAndFind(t *testing.T) {
	baz := fn("baz")
	m := &oracle.Module{Statements: []oracle.Statement{
		exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
			prop("foo", &oracle.ObjectLit{Props: []*oracle.Property{
				prop("bar", &oracle.ObjectLit{Props: []*oracle.Property{
					prop("baz", &oracle.FunctionExpr{Func: baz}),
				}}),
			}}),
			prop("top", &oracle.FunctionExpr{Func: fn("top")}),
		}}),
	}}
	tree, err := Extract(m)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, lp := range Leaves(tree.Root) {
		got = append(got, lp.Dotted())
	}
	if diff := cmp.Diff([]string{"foo.bar.baz", "top"}, got); diff != "" {
		t.Errorf("Leaves() mismatch (-want +got):\n%s", diff)
	}

	leaf, ok := Find(tree.Root, "foo.bar.baz")
	if !ok || leaf.Func != baz {
		t.Errorf("Find(foo.bar.baz) = %v, %v", leaf, ok)
	}
	if _, ok := Find(tree.Root, "foo.bar"); ok {
		t.Error("Find(foo.bar) should not return a group")
	}
	if _, ok := Find(tree.Root, "foo.missing"); ok {
		t.Error("Find(foo.missing) should fail")
	}
}

func TestExtractFromSource(t *testing.T) {
	tests := []struct {
		name string
		file string
		src  string
		want any
	}{
		{
			name: "typescript default object",
			file: "index.ts",
			src: `function square(x: number): number { return x * x; }
const greet = (name: string) => "hi " + name;
export default { square, util: { greet }, now() { return 1; } };
`,
			want: map[string]any{
				"square": "fn square",
				"util":   map[string]any{"greet": "fn"},
				"now":    "fn now",
			},
		},
		{
			name: "commonjs",
			file: "index.js",
			src: `function ping() { return "pong"; }
module.exports = { ping };
`,
			want: map[string]any{"ping": "fn ping"},
		},
		{
			name: "function declared after the export",
			file: "index.js",
			src: `module.exports = { later };
function later() { return 1; }
`,
			want: map[string]any{"later": "fn later"},
		},
		{
			name: "export default function",
			file: "index.ts",
			src:  "export default function handler(): string { return \"ok\"; }\n",
			want: "fn handler",
		},
	}
	loader := treesitter.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := loader.LoadSource(context.Background(), tt.file, []byte(tt.src), "")
			if err != nil {
				t.Fatalf("LoadSource() error: %v", err)
			}
			tree, err := Extract(prog.Module)
			if err != nil {
				t.Fatalf("Extract() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, shape(tree.Root)); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScopeLastDeclarationWins(t *testing.T) {
	first, second := fn("pick"), fn("pick")
	export := exportDefault(&oracle.ObjectLit{Props: []*oracle.Property{
		{Key: "pick", Value: &oracle.Ident{Name: "pick"}, Shorthand: true},
	}})
	m := &oracle.Module{Statements: []oracle.Statement{
		&oracle.FunctionDecl{Func: first},
		export,
		&oracle.FunctionDecl{Func: second},
	}}

	sym, ok := NewScope(m).Lookup("pick")
	if !ok || sym.Func != second {
		t.Fatalf("Lookup(pick) = %+v, want the later declaration", sym)
	}
	tree, err := Extract(m)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	leaf, ok := Find(tree.Root, "pick")
	if !ok || leaf.Func != second {
		t.Errorf("Find(pick) = %+v, want the later declaration", leaf)
	}
}
