package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/automatique/autoapi"
	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/internal/config"
	"github.com/automatique/autoapi/oracle"
)

func TestProjectOptions(t *testing.T) {
	cfg := &config.Config{
		Root:              "api",
		Entry:             "main.ts",
		Port:              4000,
		DebugEnv:          "API_DEBUG",
		RequiredFunctions: []string{"a"},
	}

	opts := (&Project{}).Options(cfg)
	if opts.Root != "api" || opts.Entry != "main.ts" || opts.Port != 4000 || opts.DebugEnv != "API_DEBUG" {
		t.Errorf("file values not applied: %+v", opts)
	}

	p := &Project{
		Root:     "other",
		Entry:    "index.js",
		Language: "javascript",
		Port:     8080,
		Logging:  true,
		Output:   "app.js",
		Require:  []string{"b.c"},
	}
	opts = p.Options(cfg)
	if opts.Root != "other" || opts.Entry != "index.js" || opts.Language != oracle.JavaScript ||
		opts.Port != 8080 || !opts.RequestLogging || opts.Output != "app.js" || opts.DebugEnv != "API_DEBUG" {
		t.Errorf("flags not applied: %+v", opts)
	}
	if diff := cmp.Diff([]string{"b.c"}, opts.RequiredFunctions); diff != "" {
		t.Errorf("RequiredFunctions mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectOptionsDetectsEntry(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "index.js"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	opts := (&Project{Root: root}).Options(&config.Config{})
	if opts.Entry != "src/index.js" {
		t.Errorf("Entry = %q, want src/index.js", opts.Entry)
	}

	if err := os.WriteFile(filepath.Join(root, "index.ts"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DetectEntry(root); got != "index.ts" {
		t.Errorf("DetectEntry() = %q, want index.ts", got)
	}
	if got := DetectEntry(t.TempDir()); got != "" {
		t.Errorf("DetectEntry(empty) = %q", got)
	}
	if opts := (&Project{}).Options(&config.Config{}); opts.Root != "." {
		t.Errorf("default Root = %q", opts.Root)
	}
}

func TestServerFile(t *testing.T) {
	tests := []struct {
		opts autoapi.Options
		want string
	}{
		{autoapi.Options{Entry: "index.ts"}, "server.ts"},
		{autoapi.Options{Entry: "index.mjs"}, "server.js"},
		{autoapi.Options{Entry: "index.ts", Language: oracle.JavaScript}, "server.js"},
		{autoapi.Options{Entry: "index.ts", Output: "api.ts"}, "api.ts"},
		{autoapi.Options{Entry: "README"}, ""},
	}
	for _, tt := range tests {
		if got := ServerFile(tt.opts); got != tt.want {
			t.Errorf("ServerFile(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestIgnored(t *testing.T) {
	opts := autoapi.Options{Root: "proj", Entry: "index.ts"}
	tests := []struct {
		out  string
		want []string
	}{
		{"proj", []string{"server.ts", "routes.json", "tsconfig.json"}},
		{"proj/gen", []string{"gen/server.ts", "gen/routes.json", "gen/tsconfig.json", "gen/package.json"}},
		{"elsewhere", nil},
	}
	for _, tt := range tests {
		got := Ignored(opts, filepath.FromSlash(tt.out))
		for i := range got {
			got[i] = filepath.ToSlash(got[i])
		}
		if len(tt.want) == 0 && len(got) == 0 {
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Ignored(%s) mismatch (-want +got):\n%s", tt.out, diff)
		}
	}
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	g := &Globals{LogFormat: "json", Stderr: &buf}
	g.Logger().Debug("hidden")
	g.Logger().Info("shown", "k", 1)
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("json logs = %s", buf.String())
	}

	buf.Reset()
	g = &Globals{LogFormat: "text", Verbose: true, Stderr: &buf}
	g.Logger().Debug("visible")
	if !strings.Contains(buf.String(), "level=DEBUG msg=visible") {
		t.Errorf("text logs = %s", buf.String())
	}
}

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := (&Globals{Config: config.FileName}).LoadConfig()
	if err != nil || cfg == nil {
		t.Fatalf("LoadConfig() with absent default file = %v, %v", cfg, err)
	}
	if _, err := (&Globals{Config: "custom.yaml"}).LoadConfig(); err == nil {
		t.Error("LoadConfig() with absent explicit file succeeded")
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, apierr.New(apierr.CodeUnsupportedUnion, "Union types are not supported").WithFunction("__API.lt5"))
	Report(&buf, errors.New("boom"))
	want := "✗ Union types are not supported\n  in __API.lt5\n✗ boom\n"
	if buf.String() != want {
		t.Errorf("Report() = %q, want %q", buf.String(), want)
	}
}
