package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pagegrep/pagegrep/files"
)

// Watcher reports documents created or modified under a root. Events are
// debounced and delivered as batches of absolute paths.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	ignore   *files.IgnoreMatcher
	supports func(path string) bool
	delay    time.Duration
	logger   *slog.Logger
	batches  chan []string
	done     chan struct{}
	once     sync.Once

	pending   map[string]struct{}
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher creates a watcher for root. supports filters documents by path;
// ignore may be nil.
func NewWatcher(root string, ignore *files.IgnoreMatcher, supports func(string) bool, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Watcher{
		root:     root,
		watcher:  fsw,
		ignore:   ignore,
		supports: supports,
		delay:    debounce,
		logger:   logger.With("component", "watcher"),
		batches:  make(chan []string, 4),
		done:     make(chan struct{}),
		pending:  make(map[string]struct{}),
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	return nil
}

// Batches delivers the documents changed since the previous batch, sorted
// by path.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.pendingMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.pendingMu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) ignored(relPath string) bool {
	return w.ignore != nil && w.ignore.ShouldIgnore(relPath)
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if relPath != "." && w.ignored(relPath) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	if strings.HasPrefix(filepath.Base(relPath), ".") || w.ignored(relPath) {
		return
	}

	if w.supports != nil && !w.supports(event.Name) {
		// A new directory must be watched as well.
		if !event.Has(fsnotify.Create) {
			return
		}
		info, err := os.Stat(event.Name)
		if err != nil || !info.IsDir() {
			return
		}
		if err := w.addRecursive(event.Name); err != nil {
			w.logger.Warn("failed to add new directory", "path", event.Name, "error", err)
		}
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	w.debounce(event.Name)
}

// debounce records a changed document and restarts the flush timer.
func (w *Watcher) debounce(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.flush)
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(batch) == 0 {
		return
	}
	sort.Strings(batch)
	w.logger.Debug("flushing changes", "documents", len(batch))

	select {
	case w.batches <- batch:
	case <-w.done:
	}
}
