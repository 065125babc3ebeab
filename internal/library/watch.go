package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long a file must stay unchanged before a
// watcher re-imports it.
const DefaultSettleDelay = 500 * time.Millisecond

// Watcher keeps the library in sync with a directory of chapter files.
type Watcher struct {
	lib    *Library
	root   string
	settle time.Duration

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer

	// Applied is called after a change has been written to the library.
	Applied func(name string, removed bool)
}

// NewWatcher watches root recursively. settle <= 0 uses DefaultSettleDelay.
func NewWatcher(lib *Library, root string, settle time.Duration) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		lib:     lib,
		root:    abs,
		settle:  settle,
		watcher: fw,
		pending: make(map[string]*time.Timer),
	}
	if err := w.watchDir(abs); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.lib.log.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) watchDir(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			w.lib.log.Warn("failed to access path", "path", p, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		w.lib.log.Debug("added watch", "path", p)
		return nil
	})
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			_ = w.watchDir(path)
			return
		}
	}

	if !isChapterFile(path) {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.cancel(path)
		name := ChapterName(w.root, path)
		if err := w.lib.Remove(ctx, name); err != nil {
			w.lib.log.Warn("failed to remove chapter", "chapter", name, "err", err)
			return
		}
		w.applied(name, true)
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		w.schedule(ctx, path)
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		if !w.settled(path, t) {
			return
		}

		ch, err := ReadChapterFile(w.root, path)
		if err != nil {
			w.lib.log.Warn("failed to read chapter file", "path", path, "err", err)
			return
		}
		if err := w.lib.Put(ctx, ch); err != nil {
			w.lib.log.Warn("failed to store chapter", "chapter", ch.Name, "err", err)
			return
		}
		w.lib.log.Info("chapter updated", "chapter", ch.Name, "sha", ch.SHA)
		w.applied(ch.Name, false)
	})
	w.pending[path] = t
}

// settled reports whether t is still the live timer for path and, if so,
// forgets it. A timer that fired just as it was replaced loses.
func (w *Watcher) settled(path string, t *time.Timer) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending[path] != t {
		return false
	}
	delete(w.pending, path)
	return true
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) applied(name string, removed bool) {
	if w.Applied != nil {
		w.Applied(name, removed)
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}

func isChapterFile(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range ChapterExtensions {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
