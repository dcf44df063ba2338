package synth

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/fulltype"
	"github.com/automatique/autoapi/internal/exports"
	"github.com/automatique/autoapi/oracle"
)

type fakeType struct {
	kind    oracle.TypeKind
	name    string
	args    []oracle.Type
	members []oracle.Type
	props   []oracle.PropertySymbol
}

func (f *fakeType) Kind() oracle.TypeKind               { return f.kind }
func (f *fakeType) Name() string                        { return f.name }
func (f *fakeType) TypeArguments() []oracle.Type        { return f.args }
func (f *fakeType) Types() []oracle.Type                { return f.members }
func (f *fakeType) Properties() []oracle.PropertySymbol { return f.props }
func (f *fakeType) String() string {
	if f.name != "" {
		return f.name
	}
	return f.kind.String()
}

var (
	tString  = &fakeType{kind: oracle.KindString}
	tNumber  = &fakeType{kind: oracle.KindNumber}
	tBoolean = &fakeType{kind: oracle.KindBoolean}
	tVoid    = &fakeType{kind: oracle.KindVoid}
)

func promiseOf(t oracle.Type) oracle.Type {
	return &fakeType{kind: oracle.KindReference, name: "Promise", args: []oracle.Type{t}}
}

// aliasType is a named alias such as `type P = Promise<string>`.
type aliasType struct {
	name   string
	target oracle.Type
}

func (a *aliasType) Kind() oracle.TypeKind               { return a.target.Kind() }
func (a *aliasType) Name() string                        { return a.name }
func (a *aliasType) TypeArguments() []oracle.Type        { return a.target.TypeArguments() }
func (a *aliasType) Types() []oracle.Type                { return a.target.Types() }
func (a *aliasType) Properties() []oracle.PropertySymbol { return a.target.Properties() }
func (a *aliasType) String() string                      { return a.name }
func (a *aliasType) Target() oracle.Type                 { return a.target }

func unionOf(ts ...oracle.Type) oracle.Type { return &fakeType{kind: oracle.KindUnion, members: ts} }

func objectOf(props ...oracle.PropertySymbol) oracle.Type {
	return &fakeType{kind: oracle.KindObject, props: props}
}

// fakeChecker answers type questions from per-function tables.
type fakeChecker struct {
	params  map[*oracle.Function][]oracle.Type
	returns map[*oracle.Function]oracle.Type
}

func newChecker() *fakeChecker {
	return &fakeChecker{
		params:  make(map[*oracle.Function][]oracle.Type),
		returns: make(map[*oracle.Function]oracle.Type),
	}
}

func (c *fakeChecker) ParamType(fn *oracle.Function, i int) oracle.Type { return c.params[fn][i] }
func (c *fakeChecker) ReturnType(fn *oracle.Function) oracle.Type       { return c.returns[fn] }
func (c *fakeChecker) TypeToString(t oracle.Type) string                { return t.String() }

type param struct {
	name string
	typ  oracle.Type
	opt  bool
}

// define registers a function with the checker and returns its leaf.
func (c *fakeChecker) define(name string, ret oracle.Type, params ...param) *exports.Leaf {
	fn := &oracle.Function{Name: name}
	var types []oracle.Type
	for _, p := range params {
		fn.Params = append(fn.Params, &oracle.Param{Name: p.name, Optional: p.opt})
		types = append(types, p.typ)
	}
	c.params[fn] = types
	c.returns[fn] = ret
	return &exports.Leaf{Func: fn}
}

func TestRouteMethodSelection(t *testing.T) {
	point := objectOf(oracle.PropertySymbol{Name: "x", Type: tNumber})
	tests := []struct {
		name       string
		params     []param
		wantMethod Method
		wantInline bool
		wantCode   []string
	}{
		{
			name:       "no parameters",
			wantMethod: GET,
			wantCode:   []string{`app.get("/f", (req, res) => {`, "const response = __API.f();"},
		},
		{
			name:       "one inlineable parameter",
			params:     []param{{name: "x", typ: tNumber}},
			wantMethod: GET,
			wantInline: true,
			wantCode: []string{
				"let x: any = req.query.x;",
				"x = Number(x);",
				`{ error: "Invalid parameter x" }`,
				`{ error: "Missing parameter x" }`,
				"__API.f(x)",
			},
		},
		{
			name:       "boolean query parameter",
			params:     []param{{name: "on", typ: tBoolean}},
			wantMethod: GET,
			wantInline: true,
			wantCode:   []string{`on = on === "true";`},
		},
		{
			name:       "two parameters",
			params:     []param{{name: "a", typ: tString}, {name: "b", typ: tString}},
			wantMethod: POST,
			wantCode:   []string{`app.post("/f"`, "let a: any = req.body.a;", "let b: any = req.body.b;", "__API.f(a, b)"},
		},
		{
			name:       "object parameter",
			params:     []param{{name: "p", typ: point}},
			wantMethod: POST,
			wantCode:   []string{"req.body.p"},
		},
		{
			name:       "union parameter",
			params:     []param{{name: "v", typ: unionOf(tString, tNumber)}},
			wantMethod: POST,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChecker()
			leaf := c.define("f", tString, tt.params...)
			s := &Synthesizer{Checker: c, Typed: true}
			r, err := s.Route(leaf, "__API.f", "/f")
			if err != nil {
				t.Fatalf("Route() error: %v", err)
			}
			if r.Record.Method != tt.wantMethod {
				t.Errorf("method = %s, want %s", r.Record.Method, tt.wantMethod)
			}
			for _, p := range r.Record.Params {
				if p.Inline != tt.wantInline {
					t.Errorf("param %s inline = %v, want %v", p.Name, p.Inline, tt.wantInline)
				}
			}
			for _, want := range tt.wantCode {
				if !strings.Contains(r.Code, want) {
					t.Errorf("code missing %q:\n%s", want, r.Code)
				}
			}
		})
	}
}

func TestRouteOptionalParameter(t *testing.T) {
	c := newChecker()
	leaf := c.define("greet", tString, param{name: "name", typ: unionOf(tString, &fakeType{kind: oracle.KindUndefined}), opt: true})
	s := &Synthesizer{Checker: c}
	r, err := s.Route(leaf, "__API.greet", "/greet")
	if err != nil {
		t.Fatalf("Route() error: %v", err)
	}
	p, _ := r.Record.Param("name")
	if !p.Optional || !p.Inline || !fulltype.Equal(p.Type, fulltype.String()) {
		t.Errorf("param = %+v, want optional inline string", p)
	}
	if strings.Contains(r.Code, "Missing parameter") {
		t.Errorf("optional parameter should not be guarded:\n%s", r.Code)
	}
	if strings.Contains(r.Code, ": any") {
		t.Errorf("untyped synthesizer emitted annotations:\n%s", r.Code)
	}
}

func TestRoutePromise(t *testing.T) {
	tests := []struct {
		name        string
		ret         oracle.Type
		wantPromise bool
		wantReturn  fulltype.FullType
	}{
		{"plain", tNumber, false, fulltype.Number()},
		{"promise", promiseOf(tNumber), true, fulltype.Number()},
		{"promise of void", promiseOf(tVoid), true, fulltype.Void()},
		{"union with promise member", unionOf(promiseOf(tString), tString), true, fulltype.String()},
		{"aliased promise", &aliasType{name: "P", target: promiseOf(tString)}, true, fulltype.String()},
		{"union with aliased promise member", unionOf(&aliasType{name: "P", target: promiseOf(tString)}, tString), true, fulltype.String()},
		{"aliased union with promise member", &aliasType{name: "U", target: unionOf(promiseOf(tNumber), tNumber)}, true, fulltype.Number()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChecker()
			leaf := c.define("f", tt.ret)
			s := &Synthesizer{Checker: c, DebugEnv: "API_DEBUG"}
			r, err := s.Route(leaf, "__API.f", "/f")
			if err != nil {
				t.Fatalf("Route() error: %v", err)
			}
			if r.Promise != tt.wantPromise {
				t.Errorf("Promise = %v, want %v", r.Promise, tt.wantPromise)
			}
			if got := strings.Contains(r.Code, "isPromise(response)"); got != tt.wantPromise {
				t.Errorf("promise branch emitted = %v, want %v:\n%s", got, tt.wantPromise, r.Code)
			}
			if !strings.Contains(r.Code, `process.env.API_DEBUG === "true"`) {
				t.Errorf("debug gate missing:\n%s", r.Code)
			}
			if diff := cmp.Diff(tt.wantReturn, r.Record.Return); diff != "" {
				t.Errorf("return mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRouteErrors(t *testing.T) {
	tests := []struct {
		name   string
		ret    oracle.Type
		params []param
		rest   bool
		want   *apierr.Error
	}{
		{name: "union return", ret: unionOf(tNumber, tString), want: apierr.ErrUnsupportedUnion},
		{name: "promise parameter", ret: tString, params: []param{{name: "p", typ: promiseOf(tString)}}, want: apierr.ErrNestedPromise},
		{name: "nested promise return", ret: promiseOf(promiseOf(tString)), want: apierr.ErrNestedPromise},
		{name: "class parameter", ret: tString, params: []param{{name: "d", typ: &fakeType{kind: oracle.KindReference, name: "Date"}}}, want: apierr.ErrUnsupportedType},
		{name: "rest parameter", ret: tString, params: []param{{name: "xs", typ: tNumber}}, rest: true, want: apierr.ErrUnsupportedParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChecker()
			leaf := c.define("lt5", tt.ret, tt.params...)
			if tt.rest {
				leaf.Func.Params[0].Rest = true
			}
			s := &Synthesizer{Checker: c}
			_, err := s.Route(leaf, "__API.math.lt5", "/math/lt5")
			if !errors.Is(err, tt.want) {
				t.Fatalf("Route() error = %v, want code %s", err, tt.want.Code)
			}
			var e *apierr.Error
			if !errors.As(err, &e) || e.Function != "__API.math.lt5" {
				t.Errorf("error not attributed to alias: %v", err)
			}
		})
	}
}

func TestRouteUnionReturnMessage(t *testing.T) {
	c := newChecker()
	leaf := c.define("lt5", unionOf(tNumber, tString), param{name: "x", typ: tNumber})
	_, err := (&Synthesizer{Checker: c}).Route(leaf, "__API.lt5", "/lt5")
	if err == nil || !strings.Contains(err.Error(), "Union types") {
		t.Errorf("error = %v, want mention of Union types", err)
	}
}

func TestRouteDocBlock(t *testing.T) {
	c := newChecker()
	leaf := c.define("square", tNumber, param{name: "x", typ: tNumber}, param{name: "scale", typ: tNumber, opt: true})
	leaf.Func.Doc = &oracle.DocComment{
		Text:    "Squares a number.",
		Params:  []oracle.DocParam{{Name: "x", Text: "the input"}},
		Returns: &oracle.DocReturn{Text: "x squared"},
	}
	r, err := (&Synthesizer{Checker: c}).Route(leaf, "__API.math.square", "/math/square")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		" * @api {post} /math/square math.square\n",
		" * @apiDescription Squares a number.\n",
		" * @apiParam {number} x the input\n",
		" * @apiParam {number} [scale]\n",
		" * @apiSuccess {number} response x squared\n",
	} {
		if !strings.Contains(r.Code, want) {
			t.Errorf("doc block missing %q:\n%s", want, r.Code)
		}
	}
	if p, _ := r.Record.Param("x"); p.Doc != "the input" {
		t.Errorf("param doc = %q", p.Doc)
	}
	if r.Record.Doc.Return != "x squared" {
		t.Errorf("return doc = %q", r.Record.Doc.Return)
	}
}

func TestLocalNames(t *testing.T) {
	c := newChecker()
	leaf := c.define("f", tString, param{name: "res", typ: tString}, param{name: "req", typ: tString})
	r, err := (&Synthesizer{Checker: c}).Route(leaf, "__API.f", "/f")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"let res_ = req.body.res;", "let req_ = req.body.req;", "__API.f(res_, req_)"} {
		if !strings.Contains(r.Code, want) {
			t.Errorf("code missing %q:\n%s", want, r.Code)
		}
	}
}

func TestAlias(t *testing.T) {
	tests := []struct {
		keys []string
		want string
	}{
		{nil, "__API"},
		{[]string{"foo", "bar", "baz"}, "__API.foo.bar.baz"},
		{[]string{"my-key"}, `__API["my-key"]`},
		{[]string{"2fa"}, `__API["2fa"]`},
		{[]string{"delete"}, `__API["delete"]`},
		{[]string{"$ok_1"}, "__API.$ok_1"},
		{[]string{"bell\a"}, `__API["bell\u0007"]`},
		{[]string{"a\"b", "c\\d"}, `__API["a\"b"]["c\\d"]`},
	}
	for _, tt := range tests {
		if got := Alias(tt.keys); got != tt.want {
			t.Errorf("Alias(%q) = %s, want %s", tt.keys, got, tt.want)
		}
	}
}

// nestedTree builds {foo: {bar: {baz}}, math: {square}}.
func nestedTree(c *fakeChecker) *exports.Group {
	baz := c.define("baz", tString)
	square := c.define("square", tNumber, param{name: "x", typ: tNumber})
	return &exports.Group{Entries: []exports.Entry{
		{Key: "foo", Node: &exports.Group{Entries: []exports.Entry{
			{Key: "bar", Node: &exports.Group{Entries: []exports.Entry{{Key: "baz", Node: baz}}}},
		}}},
		{Key: "math", Node: &exports.Group{Entries: []exports.Entry{{Key: "square", Node: square}}}},
	}}
}

func TestBuildRoutes(t *testing.T) {
	c := newChecker()
	s := &Synthesizer{Checker: c}
	asm, err := s.BuildRoutes(nestedTree(c), "")
	if err != nil {
		t.Fatalf("BuildRoutes() error: %v", err)
	}

	var paths []string
	for _, r := range asm.Routes.Records() {
		paths = append(paths, string(r.Method)+" "+r.Path+" "+r.Alias)
	}
	want := []string{
		"get /foo/bar/baz __API.foo.bar.baz",
		"get /math/square __API.math.square",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(asm.Code, "__API.foo.bar.baz()") {
		t.Errorf("code missing nested alias call:\n%s", asm.Code)
	}
	if strings.Index(asm.Code, "/foo/bar/baz") > strings.Index(asm.Code, "/math/square") {
		t.Error("handlers not in export order")
	}
	if !asm.AllGet() {
		t.Error("AllGet() = false, want true")
	}
}

func TestBuildRoutesRootLeaf(t *testing.T) {
	c := newChecker()
	leaf := c.define("handler", tString, param{name: "a", typ: tString}, param{name: "b", typ: tString})
	asm, err := (&Synthesizer{Checker: c}).BuildRoutes(leaf, "")
	if err != nil {
		t.Fatal(err)
	}
	recs := asm.Routes.Records()
	if len(recs) != 1 || recs[0].Path != "/" || recs[0].Alias != "__API" {
		t.Fatalf("records = %+v", recs)
	}
	if !strings.Contains(asm.Code, "__API(a, b)") {
		t.Errorf("root call missing:\n%s", asm.Code)
	}
	if asm.AllGet() {
		t.Error("AllGet() = true, want false")
	}
}

func TestBuildRoutesFailsFast(t *testing.T) {
	c := newChecker()
	g := nestedTree(c)
	bad := c.define("bad", unionOf(tString, tNumber))
	g.Entries = append(g.Entries, exports.Entry{Key: "bad", Node: bad})
	_, err := (&Synthesizer{Checker: c}).BuildRoutes(g, "")
	var e *apierr.Error
	if !errors.As(err, &e) || e.Function != "__API.bad" {
		t.Fatalf("error = %v, want attribution to __API.bad", err)
	}
}

func TestMultiRouteJSON(t *testing.T) {
	c := newChecker()
	asm, err := (&Synthesizer{Checker: c}).BuildRoutes(nestedTree(c), "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(asm.Routes)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}

	math := got["math"].(map[string]any)
	if math["type"] != "export" {
		t.Errorf("math.type = %v, want export", math["type"])
	}
	square := math["export"].(map[string]any)["square"].(map[string]any)
	if square["type"] != "func" || square["method"] != "get" || square["path"] != "/math/square" {
		t.Errorf("square = %v", square)
	}
	if ret := square["return"].(map[string]any); ret["type"] != "number" {
		t.Errorf("square.return.type = %v, want number", ret["type"])
	}
	x := square["params"].(map[string]any)["x"].(map[string]any)
	want := map[string]any{"type": map[string]any{"type": "number"}, "optional": false, "inline": true}
	if diff := cmp.Diff(want, x); diff != "" {
		t.Errorf("param x mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(string(b), `{"foo":`) {
		t.Errorf("entries not in export order: %s", b)
	}
}

func TestRenderServer(t *testing.T) {
	c := newChecker()
	getOnly, err := (&Synthesizer{Checker: c, Typed: true}).BuildRoutes(nestedTree(c), "")
	if err != nil {
		t.Fatal(err)
	}
	withPost := &Assembly{Code: "// routes\n", Post: true, Promise: true}
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		asm     *Assembly
		cfg     ServerConfig
		want    []string
		notWant []string
	}{
		{
			name: "typescript get only",
			asm:  getOnly,
			cfg:  ServerConfig{Typed: true, Entry: "index.ts", Generated: when},
			want: []string{
				"This is an automatic API generated by autoapi\nGenerated Fri, 01 Mar 2024 12:00:00 UTC */\n",
				"*/\nimport __API from \"./index\";\nimport express from \"express\";\n\nconst app = express();\n",
				"const port = process.env.PORT || 3000;",
				"app.get(\"/math/square\"",
			},
			notWant: []string{"bodyParser", "isPromise", "morgan", "require("},
		},
		{
			name: "javascript with post and logging",
			asm:  withPost,
			cfg:  ServerConfig{Entry: "src/api.js", Port: 8080, RequestLogging: true, Generated: when},
			want: []string{
				"const __API = require(\"./src/api\");\n",
				"const isPromise = require(\"is-promise\");\n",
				"const bodyParser = require(\"body-parser\");\n",
				"app.use(bodyParser.json());\napp.use(morgan(\"dev\"));\n",
				"process.env.PORT || 8080",
			},
			notWant: []string{"import "},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := RenderServer(tt.asm, tt.cfg)
			if err != nil {
				t.Fatalf("RenderServer() error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(src, w) {
					t.Errorf("server missing %q:\n%s", w, src)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(src, w) {
					t.Errorf("server unexpectedly contains %q:\n%s", w, src)
				}
			}
		})
	}
}

func TestImportPath(t *testing.T) {
	tests := map[string]string{
		"index.ts":        "./index",
		"src/api.js":      "./src/api",
		"./lib/main.mjs":  "./lib/main",
		"../shared/x.ts":  "../shared/x",
		`src\windows.ts`:  "./src/windows",
		"noext":           "./noext",
	}
	for in, want := range tests {
		if got := ImportPath(in); got != want {
			t.Errorf("ImportPath(%q) = %q, want %q", in, got, want)
		}
	}
}
