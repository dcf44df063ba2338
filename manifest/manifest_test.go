package manifest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/automatique/autoapi/oracle"
)

const callerJSON = `{
  "name": "math-lib",
  "version": "1.2.3",
  "scripts": {"build": "tsc"},
  "dependencies": {"express": "^4.18.2", "lodash": "^4"},
  "custom": {"nested": [1, 2, 3]}
}`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(callerJSON))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.Name() != "math-lib" || p.Version() != "1.2.3" {
		t.Errorf("name/version = %q/%q", p.Name(), p.Version())
	}
	if diff := cmp.Diff(map[string]string{"express": "^4.18.2", "lodash": "^4"}, p.Dependencies); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "version", "scripts", "dependencies", "custom"}, p.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"array":           `[1, 2]`,
		"truncated":       `{"name": "x"`,
		"bad dependency":  `{"dependencies": {"express": 4}}`,
		"not json":        `name: x`,
		"dependency list": `{"devDependencies": ["typescript"]}`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(in)); err == nil {
				t.Errorf("Parse(%s) succeeded, want error", in)
			}
		})
	}
}

func TestMarshalPreservesUnknownFields(t *testing.T) {
	p, err := Parse([]byte(callerJSON))
	if err != nil {
		t.Fatal(err)
	}
	p.Dependencies["is-promise"] = "^4"
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"name":"math-lib","version":"1.2.3","scripts":{"build":"tsc"},` +
		`"dependencies":{"express":"^4.18.2","is-promise":"^4","lodash":"^4"},` +
		`"custom":{"nested":[1,2,3]}}`
	if string(b) != want {
		t.Errorf("Marshal() =\n%s\nwant\n%s", b, want)
	}
}

func TestCompose(t *testing.T) {
	caller, err := Parse([]byte(callerJSON))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name    string
		lang    oracle.Language
		allGet  bool
		opts    ComposeOptions
		wantDep map[string]string
		wantDev map[string]string
	}{
		{
			name:   "javascript all get",
			lang:   oracle.JavaScript,
			allGet: true,
			wantDep: map[string]string{
				"express": "^4.18.2", "lodash": "^4", "is-promise": "^4",
			},
		},
		{
			name:   "javascript with post and logging",
			lang:   oracle.JavaScript,
			opts:   ComposeOptions{RequestLogging: true},
			wantDep: map[string]string{
				"express": "^4.18.2", "lodash": "^4", "is-promise": "^4",
				"body-parser": "latest", "morgan": "^1",
			},
		},
		{
			name:   "typescript",
			lang:   oracle.TypeScript,
			allGet: false,
			wantDep: map[string]string{
				"express": "^4.18.2", "lodash": "^4", "is-promise": "^4",
				"body-parser": "latest", "@types/express": "~4", "@types/body-parser": "latest",
			},
			wantDev: map[string]string{"typescript": "latest", "@types/node": "latest"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(caller, tt.lang, tt.allGet, tt.opts)
			if diff := cmp.Diff(tt.wantDep, got.Dependencies); diff != "" {
				t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantDev, got.DevDependencies); diff != "" {
				t.Errorf("devDependencies mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if _, ok := caller.Dependencies["is-promise"]; ok {
		t.Error("Compose mutated the caller manifest")
	}
}

func TestComposeCallerWins(t *testing.T) {
	caller, err := Parse([]byte(`{"devDependencies": {"typescript": "5.4.2"}}`))
	if err != nil {
		t.Fatal(err)
	}
	got := Compose(caller, oracle.TypeScript, true, ComposeOptions{})
	if v := got.DevDependencies["typescript"]; v != "5.4.2" {
		t.Errorf("typescript = %q, want caller's 5.4.2", v)
	}
	if diff := cmp.Diff([]string{"devDependencies", "dependencies"}, got.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeNilCaller(t *testing.T) {
	got := Compose(nil, oracle.JavaScript, true, ComposeOptions{})
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"dependencies":{"express":"~4","is-promise":"^4"}}` {
		t.Errorf("Marshal() = %s", b)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{name: "valid", in: callerJSON},
		{name: "no name", in: `{}`},
		{name: "uppercase name", in: `{"name": "MathLib"}`, wantErr: "Name"},
		{name: "empty version", in: `{"dependencies": {"express": ""}}`, wantErr: "Dependencies"},
		{name: "empty package name", in: `{"devDependencies": {"": "1"}}`, wantErr: "DevDependencies"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			err = p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultTSConfig(t *testing.T) {
	b, err := json.Marshal(DefaultTSConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"strict":true`, `"moduleResolution":"node"`, `"declaration":true`, `"sourceMap":true`, `"outDir":"./dist"`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("tsconfig missing %s: %s", want, b)
		}
	}
}
