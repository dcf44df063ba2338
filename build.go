package autoapi

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/internal/exports"
	"github.com/automatique/autoapi/internal/synth"
	"github.com/automatique/autoapi/internal/workspace"
	"github.com/automatique/autoapi/manifest"
	"github.com/automatique/autoapi/oracle"
	"github.com/automatique/autoapi/oracle/treesitter"
)

// Build checks the project at opts.Root, type-checks opts.Entry and
// synthesizes the server for its default export.
func Build(ctx context.Context, opts Options) (*Result, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	ws, err := workspace.Open(opts.Root, opts.Entry)
	if err != nil {
		return nil, failed(ctx, opts.Logger, err)
	}

	o := opts.Oracle
	if o == nil {
		o = treesitter.New(treesitter.WithLogger(opts.Logger))
	}
	prog, err := o.Load(ctx, ws.Root, ws.Entry, opts.Language)
	if err != nil {
		if ctx.Err() != nil {
			return nil, failed(ctx, opts.Logger, ctx.Err())
		}
		return nil, failed(ctx, opts.Logger, apierr.Wrap(apierr.CodeCompile, err,
			"Failed to compile "+string(opts.Language)+" module: "+err.Error()))
	}
	return BuildProgram(ctx, prog, ws.Manifest, opts)
}

// BuildProgram synthesizes the server for an already loaded program. pkg is
// the caller's package.json; it is not modified.
func BuildProgram(ctx context.Context, prog *oracle.Program, pkg *manifest.Package, opts Options) (*Result, error) {
	if opts.Entry == "" {
		opts.Entry = prog.Entry
	}
	if opts.Language == "" {
		opts.Language = prog.Language
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	start := time.Now()
	logger.InfoContext(ctx, "build started",
		slog.String("root", opts.Root),
		slog.String("entry", opts.Entry),
		slog.String("language", string(opts.Language)),
	)

	res, err := build(ctx, prog, pkg, opts)
	if err != nil {
		return nil, failed(ctx, logger, err)
	}

	logger.InfoContext(ctx, "build completed",
		slog.Int("routes", len(res.Routes.Records())),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func build(ctx context.Context, prog *oracle.Program, pkg *manifest.Package, opts Options) (*Result, error) {
	if len(prog.Diagnostics) > 0 {
		msgs := make([]string, len(prog.Diagnostics))
		for i, d := range prog.Diagnostics {
			msgs[i] = d.String()
		}
		return nil, apierr.New(apierr.CodeCompile,
			"Failed to compile "+string(opts.Language)+" module: "+strings.Join(msgs, "\n")).
			WithDetail("diagnostics", len(prog.Diagnostics))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := exports.Extract(prog.Module)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(tree.Root, opts.RequiredFunctions); err != nil {
		return nil, err
	}

	s := &synth.Synthesizer{
		Checker:  prog.Checker,
		Typed:    opts.Language.Typed(),
		DebugEnv: opts.DebugEnv,
		Logger:   opts.Logger,
	}
	asm, err := s.BuildRoutes(tree.Root, "")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	server, err := synth.RenderServer(asm, synth.ServerConfig{
		Typed:          opts.Language.Typed(),
		Entry:          opts.Entry,
		Port:           opts.Port,
		RequestLogging: opts.RequestLogging,
		Generated:      opts.Clock(),
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, err, "render server")
	}

	res := &Result{
		Language:   opts.Language,
		ServerFile: opts.Output,
		Server:     server,
		Manifest: manifest.Compose(pkg, opts.Language, asm.AllGet(), manifest.ComposeOptions{
			RequestLogging: opts.RequestLogging,
		}),
		Routes: asm.Routes,
	}
	if opts.Language.Typed() {
		res.TSConfig = manifest.DefaultTSConfig()
	}
	return res, nil
}

// checkRequired reports every dotted path in required that does not name a
// function under root.
func checkRequired(root exports.Node, required []string) error {
	var missing []string
	for _, name := range required {
		if _, ok := exports.Find(root, name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return apierr.New(apierr.CodeMissingRequiredFunction,
		"Failed to find all specified functions in the source code.\nMissing ("+strings.Join(missing, ",")+")").
		WithDetail("missing", missing)
}

func failed(ctx context.Context, logger *slog.Logger, err error) error {
	e := apierr.From(err)
	attrs := []any{slog.String("code", string(e.Code)), slog.String("error", e.Message)}
	if e.Function != "" {
		attrs = append(attrs, slog.String("function", e.Function))
	}
	logger.ErrorContext(ctx, "build failed", attrs...)
	return e
}
