package library

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow coalesces bursts of filesystem events (editors often write
// a file several times in quick succession) into a single reload.
const debounceWindow = 250 * time.Millisecond

// Watcher hot-reloads the library when chain files change.
type Watcher struct {
	library *Library
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	stop    chan struct{}
}

// NewWatcher creates a watcher over the library's directory.
func NewWatcher(l *Library) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	return &Watcher{
		library: l,
		watcher: fw,
		logger:  l.logger,
		stop:    make(chan struct{}),
	}, nil
}

// Start begins watching. Events are processed in a background goroutine
// until Stop is called or the context is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.library.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.library.dir, err)
	}
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		// Already stopped.
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isChainFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if err := w.library.Reload(); err != nil {
				w.logger.Warn("chain library reload failed", zap.Error(err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("chain library watcher error", zap.Error(err))
		}
	}
}
