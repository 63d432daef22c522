package driver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-runs a check whenever watched Python files change,
// debouncing bursts of events from editors that write in several steps.
type Watcher struct {
	rootDir      string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	onChange     func()
	logger       *slog.Logger

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher registers the root directory tree and returns the watcher.
func NewWatcher(rootDir string, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		rootDir:      rootDir,
		watcher:      fsw,
		debounceTime: 400 * time.Millisecond,
		onChange:     onChange,
		logger:       logger,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	if err := w.addDirectoriesRecursively(rootDir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins watching in the background.
func (w *Watcher) Start(ctx context.Context) {
	go w.watch(ctx)
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		w.watcher.Close()
	})
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// New directories need registering before their contents
			// produce events.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addDirectoriesRecursively(event.Name)
					continue
				}
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.debounceTime, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		case <-fire:
			w.onChange()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, ".flint-write-") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".py", ".pyi", ".ipynb":
		return true
	}
	// Directory events carry no extension; let them through so new
	// directories get registered.
	info, err := os.Stat(event.Name)
	return err == nil && info.IsDir()
}

func (w *Watcher) addDirectoriesRecursively(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable subtrees just go unwatched
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if path != root && (strings.HasPrefix(base, ".") || base == "__pycache__" || base == "venv") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}
