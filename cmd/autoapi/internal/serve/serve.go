package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automatique/autoapi"
	"github.com/automatique/autoapi/cmd/autoapi/internal/cli"
	"github.com/automatique/autoapi/devtools"
	"github.com/automatique/autoapi/internal/watch"
	"github.com/automatique/autoapi/sink"
)

// DefaultAddr is used when neither --addr nor devtools.addr is set.
const DefaultAddr = "localhost:7070"

type Cmd struct {
	Project cli.Project `embed:""`

	Addr  string `help:"Address to serve the devtools API on (default: localhost:7070)." short:"a"`
	Watch bool   `help:"Rebuild when sources change." short:"w" default:"true" negatable:""`
	Write bool   `help:"Write artifacts to the project root after each successful build."`
}

func (c *Cmd) Run(g *cli.Globals) error {
	logger := g.Logger()
	cfg, err := g.LoadConfig()
	if err != nil {
		return err
	}
	opts := c.Project.Options(cfg)
	opts.Logger = logger

	addr := c.Addr
	if addr == "" {
		addr = cfg.Devtools.Addr
	}
	if addr == "" {
		addr = DefaultAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := devtools.New(logger)
	b := &builder{svc: svc, opts: opts}
	if c.Write {
		b.sink = sink.NewFilesystemSink(opts.Root)
	}
	b.run(ctx, nil)

	srv := &http.Server{
		Addr:              addr,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	fmt.Fprintf(g.Out(), "autoapi devtools listening on http://%s\n", addr)

	if c.Watch {
		var ignore []string
		if c.Write {
			ignore = cli.Ignored(opts, opts.Root)
		}
		go func() {
			errc <- cli.Watch(ctx, logger, opts, ignore, b.run)
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errc:
		if err == nil {
			<-ctx.Done()
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("shutdown", slog.Any("error", serr))
	}
	return err
}

type builder struct {
	svc  *devtools.Service
	opts autoapi.Options
	sink sink.OutputSink
}

func (b *builder) run(ctx context.Context, w *watch.Watcher) {
	b.svc.SetBuilding()
	start := time.Now()
	res, err := autoapi.Build(ctx, b.opts)
	if err == nil && b.sink != nil {
		err = b.write(ctx, res, w)
	}
	if err != nil {
		b.svc.SetError(err)
		return
	}
	b.svc.SetResult(res, time.Since(start))
}

func (b *builder) write(ctx context.Context, res *autoapi.Result, w *watch.Watcher) error {
	if w != nil {
		if a, ok, err := res.Artifact(autoapi.ManifestFile); err == nil && ok {
			w.Remember(autoapi.ManifestFile, a.Content)
		}
	}
	return res.WriteTo(ctx, b.sink)
}
