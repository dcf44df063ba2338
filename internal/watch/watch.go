// Package watch rebuilds a project when its source files change.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDebounce is the quiet period after the last change before a rebuild.
const DefaultDebounce = 150 * time.Millisecond

// DefaultExtensions are the file types that trigger rebuilds.
var DefaultExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts", ".json"}

// skipDirs are never watched.
var skipDirs = map[string]bool{"node_modules": true, ".git": true, "dist": true}

const cacheSize = 4096

// Watcher reports batches of changed source files below a root directory.
type Watcher struct {
	root       string
	debounce   time.Duration
	extensions []string
	ignore     map[string]bool
	logger     *slog.Logger

	mu     sync.Mutex
	hashes *lru.Cache[string, [sha256.Size]byte]
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a batch is delivered.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions replaces the watched file extensions.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithIgnore skips the given files, relative to the root. Generated
// artifacts are usually ignored so that writing them does not loop.
func WithIgnore(names ...string) Option {
	return func(w *Watcher) {
		for _, n := range names {
			w.ignore[filepath.Clean(n)] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Watcher for root.
func New(root string, opts ...Option) (*Watcher, error) {
	cache, err := lru.New[string, [sha256.Size]byte](cacheSize)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:       root,
		debounce:   DefaultDebounce,
		extensions: DefaultExtensions,
		ignore:     make(map[string]bool),
		logger:     slog.Default(),
		hashes:     cache,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Remember records content as the current state of name, relative to the
// root, so that an event carrying the same bytes is not reported.
func (w *Watcher) Remember(name string, content []byte) {
	path := filepath.Join(w.root, filepath.FromSlash(name))
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hashes.Add(path, sha256.Sum256(content))
}

// Run watches until ctx is done, calling onChange with the sorted changed
// paths (relative to the root) after each burst of edits. onChange runs on
// the watching goroutine; events arriving meanwhile are batched for the next
// call.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "watching for changes", slog.String("root", w.root))

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.logger.WarnContext(ctx, "watch directory", slog.String("dir", ev.Name), slog.Any("error", err))
					}
					continue
				}
			}
			if !w.relevant(ev) || !w.changed(ev) {
				continue
			}
			rel, err := filepath.Rel(w.root, ev.Name)
			if err != nil {
				rel = ev.Name
			}
			w.logger.DebugContext(ctx, "file changed", slog.String("file", rel), slog.String("op", ev.Op.String()))
			pending[filepath.ToSlash(rel)] = true
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.ErrorContext(ctx, "file watcher error", slog.Any("error", err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			onChange(ctx, changed)
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			if err := fw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if w.watched(path) {
			w.prime(path)
		}
		return nil
	})
}

func (w *Watcher) prime(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hashes.Add(path, sha256.Sum256(data))
}

func (w *Watcher) watched(path string) bool {
	if rel, err := filepath.Rel(w.root, path); err == nil && w.ignore[rel] {
		return false
	}
	return slices.Contains(w.extensions, strings.ToLower(filepath.Ext(path)))
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	return w.watched(ev.Name)
}

// changed reports whether the file at ev.Name differs from the last content
// seen for it, and records the new content.
func (w *Watcher) changed(ev fsnotify.Event) bool {
	data, err := os.ReadFile(ev.Name)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Removed or renamed away.
			return w.hashes.Remove(ev.Name) || ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
		}
		return true
	}
	sum := sha256.Sum256(data)
	if prev, ok := w.hashes.Get(ev.Name); ok && prev == sum {
		return false
	}
	w.hashes.Add(ev.Name, sum)
	return true
}
