package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/automatique/autoapi"
	"github.com/automatique/autoapi/cmd/autoapi/internal/cli"
	"github.com/automatique/autoapi/internal/watch"
	"github.com/automatique/autoapi/sink"
)

type Cmd struct {
	Project cli.Project `embed:""`

	Out   string `help:"Directory to write artifacts to (default: the project root)." short:"o"`
	Watch bool   `help:"Watch for changes and rebuild." short:"w"`
}

func (c *Cmd) Run(g *cli.Globals) error {
	logger := g.Logger()
	cfg, err := g.LoadConfig()
	if err != nil {
		return err
	}
	opts := c.Project.Options(cfg)
	opts.Logger = logger

	out := c.Out
	if out == "" {
		out = opts.Root
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sink.NewFilesystemSink(out)
	err = c.generate(ctx, g, opts, s, out, nil)
	if !c.Watch {
		return err
	}
	if err != nil {
		cli.Report(g.Out(), err)
	}

	return cli.Watch(ctx, logger, opts, cli.Ignored(opts, out), func(ctx context.Context, w *watch.Watcher) {
		if err := c.generate(ctx, g, opts, s, out, w); err != nil {
			cli.Report(g.Out(), err)
		}
	})
}

func (c *Cmd) generate(ctx context.Context, g *cli.Globals, opts autoapi.Options, s sink.OutputSink, out string, w *watch.Watcher) error {
	res, err := autoapi.Build(ctx, opts)
	if err != nil {
		return err
	}
	if w != nil && sameDir(out, opts.Root) {
		if a, ok, err := res.Artifact(autoapi.ManifestFile); err == nil && ok {
			w.Remember(autoapi.ManifestFile, a.Content)
		}
	}
	if err := res.WriteTo(ctx, s); err != nil {
		return err
	}
	opts.Logger.DebugContext(ctx, "artifacts written", slog.String("dir", out))
	fmt.Fprintf(g.Out(), "✓ %d routes written to %s\n", len(res.Routes.Records()), filepath.Join(out, res.ServerFile))
	return nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
