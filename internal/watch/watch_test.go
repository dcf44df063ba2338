package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
)

func newTestWatcher(t *testing.T, root string, opts ...Option) *Watcher {
	t.Helper()
	opts = append([]Option{
		WithDebounce(20 * time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	w, err := New(root, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestChanged(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "index.ts")
	writeFile(t, path, "export default {};")

	w := newTestWatcher(t, root)
	w.prime(path)

	write := fsnotify.Event{Name: path, Op: fsnotify.Write}
	if w.changed(write) {
		t.Error("unchanged content reported as changed")
	}
	writeFile(t, path, "export default { a };")
	if !w.changed(write) {
		t.Error("new content not reported")
	}
	if w.changed(write) {
		t.Error("content reported twice")
	}

	w.Remember("index.ts", []byte("generated"))
	writeFile(t, path, "generated")
	if w.changed(write) {
		t.Error("remembered content reported as changed")
	}

	os.Remove(path)
	if !w.changed(fsnotify.Event{Name: path, Op: fsnotify.Remove}) {
		t.Error("removal not reported")
	}
}

func TestWatched(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, WithIgnore("server.ts"))
	tests := map[string]bool{
		"index.ts":        true,
		"lib/util.JS":     true,
		"package.json":    true,
		"server.ts":       false,
		"README.md":       false,
		"styles/site.css": false,
	}
	for name, want := range tests {
		if got := w.watched(filepath.Join(root, name)); got != want {
			t.Errorf("watched(%s) = %v, want %v", name, got, want)
		}
	}
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.ts"), "export default {};")
	writeFile(t, filepath.Join(root, "node_modules", "x", "index.js"), "")

	w := newTestWatcher(t, root, WithIgnore("server.ts"), WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) {
			batches <- changed
		})
	}()

	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)

	writeFile(t, filepath.Join(root, "server.ts"), "ignored")
	writeFile(t, filepath.Join(root, "index.ts"), "export default {};") // same bytes
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "math.ts"), "export const x = 1;")
	writeFile(t, filepath.Join(root, "index.ts"), "export default { x };")

	select {
	case got := <-batches:
		if diff := cmp.Diff([]string{"index.ts", "math.ts"}, got); diff != "" {
			t.Errorf("batch mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
	}

	select {
	case got := <-batches:
		t.Errorf("unexpected extra batch %v", got)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
