package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mcsmanager/mcsm_bot/logger"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Watcher reloads a Holder when one of its files changes on disk.
// Directories are watched rather than files so editors that replace the
// file through a rename are still picked up.
type Watcher struct {
	holder   *Holder
	logger   logger.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher
	targets  map[string]struct{}

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// WatcherParams holds configuration for creating a Watcher.
type WatcherParams struct {
	Holder   *Holder
	Logger   logger.Logger
	Debounce time.Duration
}

// NewWatcher creates a Watcher over the holder's files.
func NewWatcher(p WatcherParams) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := p.Debounce
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	targets := make(map[string]struct{})
	for _, f := range p.Holder.Files() {
		if abs, err := filepath.Abs(f); err == nil {
			targets[abs] = struct{}{}
		}
	}

	return &Watcher{
		holder:   p.Holder,
		logger:   logger.OrNop(p.Logger),
		debounce: debounce,
		watcher:  fsw,
		targets:  targets,
	}, nil
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	dirs := make(map[string]struct{})
	for target := range w.targets {
		dirs[filepath.Dir(target)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.WarnW("config watch failed", "dir", dir, "error", err)
		}
	}

	w.running = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	<-w.done
	if err := w.watcher.Close(); err != nil {
		w.logger.WarnW("close config watcher", "error", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WarnW("config watcher error", "error", err)
		case <-fire:
			fire = nil
			if _, err := w.holder.Reload(); err != nil {
				w.logger.ErrorW("config reload failed, keeping previous config", "error", err)
				continue
			}
			w.logger.InfoW("config reloaded from disk")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.targets[abs]
	return ok
}
