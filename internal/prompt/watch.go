package prompt

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher syncs tracked prompts automatically when their source files
// change. Parent directories are watched rather than the files
// themselves, since editors commonly replace files by rename.
type Watcher struct {
	svc     *Service
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu         sync.RWMutex
	keysByPath map[string]string // absolute source path -> key
}

// NewWatcher builds a watcher over every currently tracked source file
// and starts its event loop.
func NewWatcher(svc *Service, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		svc:        svc,
		watcher:    fsw,
		logger:     logger,
		keysByPath: make(map[string]string),
	}

	if err := w.register(); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.watchLoop()

	return w, nil
}

func (w *Watcher) register() error {
	files, err := w.svc.SourceFiles()
	if err != nil {
		return err
	}

	dirs := make(map[string]bool)
	w.mu.Lock()
	for _, f := range files {
		abs := filepath.Clean(f.Path)
		w.keysByPath[abs] = f.Key
		dirs[filepath.Dir(abs)] = true
	}
	w.mu.Unlock()

	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return nil
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.mu.RLock()
	key, ok := w.keysByPath[filepath.Clean(event.Name)]
	w.mu.RUnlock()
	if !ok {
		return
	}

	result, err := w.svc.Sync(key, false)
	if err != nil {
		w.logger.Error("auto-sync failed", zap.String("key", key), zap.Error(err))
		return
	}
	if result.Changed {
		w.logger.Info("auto-synced",
			zap.String("key", key),
			zap.Int("old_version", result.OldVersion),
			zap.Int("new_version", result.NewVersion))
	}
}

// Close stops the event loop and releases the OS watches.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
