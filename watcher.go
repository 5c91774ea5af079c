package dryml

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// Watcher drops build cache entries as soon as their template files change,
// so the next compile reparses without waiting on the mtime check.
type Watcher struct {
	watcher *fsnotify.Watcher
	root    string
	cache   *BuildCache
	log     logr.Logger

	// OnChange, when set, is called with the logical path of each changed
	// template after its entry has been dropped.
	OnChange func(path string)

	changes atomic.Uint64
	started atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// NewWatcher creates a watcher for the templates below root.
func NewWatcher(root string, cache *BuildCache, log logr.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return &Watcher{
		watcher: fsWatcher,
		root:    abs,
		cache:   cache,
		log:     log.WithName("watcher"),
		done:    make(chan struct{}),
	}, nil
}

// Start watches root recursively until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watchDirRecursive(w.root); err != nil {
		return err
	}
	w.log.Info("watching templates", "root", w.root)
	w.started.Store(true)
	go w.eventLoop(ctx)
	return nil
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		if w.started.Load() {
			<-w.done
		}
	})
	return err
}

// Changes returns the number of template changes seen so far.
func (w *Watcher) Changes() uint64 {
	return w.changes.Load()
}

func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
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
			w.log.Error(err, "watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchDirRecursive(event.Name); err != nil {
				w.log.Error(err, "failed to watch directory", "dir", event.Name)
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !IsTemplateFile(event.Name) {
		return
	}
	p, ok := w.logicalPath(event.Name)
	if !ok {
		return
	}
	w.changes.Add(1)
	dropped := w.cache.Invalidate(p)
	w.log.V(1).Info("template changed", "path", p, "op", event.Op.String(), "dropped", dropped)
	if w.OnChange != nil {
		w.OnChange(p)
	}
}

// logicalPath maps a file name to the cache key the Compiler uses for it.
func (w *Watcher) logicalPath(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return "/" + filepath.ToSlash(rel), true
}
