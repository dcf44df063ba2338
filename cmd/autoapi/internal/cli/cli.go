// Package cli holds the flags and helpers shared by the autoapi commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/automatique/autoapi"
	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/internal/config"
	"github.com/automatique/autoapi/internal/watch"
	"github.com/automatique/autoapi/oracle"
)

// Globals are the flags accepted by every command.
type Globals struct {
	Config    string `help:"Project file." default:"autoapi.yaml" env:"AUTOAPI_CONFIG" short:"c"`
	LogFormat string `help:"Log output format." enum:"text,json" default:"text" env:"AUTOAPI_LOG_FORMAT" name:"log-format"`
	Verbose   bool   `help:"Enable debug logging." short:"v"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

// Out is where command results are printed.
func (g *Globals) Out() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Globals) errOut() io.Writer {
	if g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// Logger builds the logger selected by --log-format and --verbose. Logs go to
// stderr so that stdout stays machine readable.
func (g *Globals) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if g.Verbose {
		opts.Level = slog.LevelDebug
	}
	if g.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(g.errOut(), opts))
	}
	return slog.New(slog.NewTextHandler(g.errOut(), opts))
}

// LoadConfig reads the project file. The default file may be absent; a file
// named explicitly must exist.
func (g *Globals) LoadConfig() (*config.Config, error) {
	path := g.Config
	if path == "" {
		path = config.FileName
	}
	return config.Load(path, path == config.FileName)
}

// Project selects the module to build and the shape of the generated server.
// Flags override the project file.
type Project struct {
	Root     string   `arg:"" optional:"" help:"Project directory (default: current directory)."`
	Entry    string   `help:"Entry module, relative to the root (default: index.ts or index.js)." short:"e"`
	Language string   `help:"Source language: typescript or javascript (default: from the entry extension)."`
	Port     int      `help:"Fallback port of the generated server." short:"p"`
	DebugEnv string   `help:"Variable that enables error stacks in the generated server." name:"debug-env"`
	Logging  bool     `help:"Add request logging to the generated server." name:"request-logging"`
	Output   string   `help:"Server file name, relative to the root." name:"server-file"`
	Require  []string `help:"Dotted export paths that must be functions." sep:","`
}

// entryCandidates are tried in order when no entry is configured.
var entryCandidates = []string{"index.ts", "index.js", "src/index.ts", "src/index.js"}

// Options merges the project file and the flags into build options.
func (p *Project) Options(cfg *config.Config) autoapi.Options {
	opts := cfg.Options()
	if p.Root != "" {
		opts.Root = p.Root
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	if p.Entry != "" {
		opts.Entry = p.Entry
	}
	if p.Language != "" {
		opts.Language = oracle.Language(p.Language)
	}
	if p.Port != 0 {
		opts.Port = p.Port
	}
	if p.DebugEnv != "" {
		opts.DebugEnv = p.DebugEnv
	}
	if p.Logging {
		opts.RequestLogging = true
	}
	if p.Output != "" {
		opts.Output = p.Output
	}
	if len(p.Require) > 0 {
		opts.RequiredFunctions = p.Require
	}
	if opts.Entry == "" {
		opts.Entry = DetectEntry(opts.Root)
	}
	return opts
}

// DetectEntry returns the first conventional entry file present below root,
// or "" when there is none.
func DetectEntry(root string) string {
	for _, name := range entryCandidates {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(name)))
		if err == nil && !info.IsDir() {
			return name
		}
	}
	return ""
}

// ServerFile returns the name the server is written under, before a build has
// resolved it.
func ServerFile(opts autoapi.Options) string {
	if opts.Output != "" {
		return opts.Output
	}
	lang := opts.Language
	if lang == "" {
		lang, _ = oracle.LanguageFromPath(opts.Entry)
	}
	if lang == "" {
		return ""
	}
	return "server" + lang.Ext()
}

// Ignored lists the artifacts a build writes into out that the watcher should
// skip, relative to root. package.json is both read and written by a build so
// it stays watched when out is root; callers Remember its written content
// instead.
func Ignored(opts autoapi.Options, out string) []string {
	rel, err := filepath.Rel(opts.Root, out)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	names := []string{}
	artifacts := []string{ServerFile(opts), autoapi.RoutesFile, autoapi.TSConfigFile}
	if rel != "." {
		artifacts = append(artifacts, autoapi.ManifestFile)
	}
	for _, n := range artifacts {
		if n != "" {
			names = append(names, filepath.Join(rel, n))
		}
	}
	return names
}

// Watch calls rebuild after every batch of source changes below opts.Root
// until ctx is done. Files in ignore are not watched.
func Watch(ctx context.Context, logger *slog.Logger, opts autoapi.Options, ignore []string, rebuild func(ctx context.Context, w *watch.Watcher)) error {
	w, err := watch.New(opts.Root, watch.WithLogger(logger), watch.WithIgnore(ignore...))
	if err != nil {
		return err
	}
	return w.Run(ctx, func(ctx context.Context, changed []string) {
		logger.InfoContext(ctx, "rebuilding", slog.Any("changed", changed))
		rebuild(ctx, w)
	})
}

// Report prints err the way the build reports it: the message, then the
// function it concerns.
func Report(w io.Writer, err error) {
	var e *apierr.Error
	if !errors.As(err, &e) {
		fmt.Fprintf(w, "✗ %v\n", err)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", e.Message)
	if e.Function != "" {
		fmt.Fprintf(w, "  in %s\n", e.Function)
	}
}
