// Package watch reloads the plugin manifest when it changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 300 * time.Millisecond

// Reconciler applies a reloaded descriptor set.
type Reconciler interface {
	Reconcile(ctx context.Context, descriptors []*domainplugin.Descriptor) error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger ports.Logger) Option {
	return func(w *Watcher) {
		w.logger = logging.OrNoOp(logger).With("component", "watcher")
	}
}

// Watcher monitors one manifest file. Reloads run on the Run goroutine, so
// reconciliations never overlap.
type Watcher struct {
	path       string
	source     ports.DescriptorSource
	reconciler Reconciler
	logger     ports.Logger
	debounce   time.Duration

	mu           sync.Mutex
	lastModified time.Time
	size         int64
}

// NewWatcher creates a watcher for the manifest at path.
func NewWatcher(path string, source ports.DescriptorSource, reconciler Reconciler, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}
	w := &Watcher{
		path:       absPath,
		source:     source,
		reconciler: reconciler,
		logger:     logging.NewNoOpLogger(),
		debounce:   DefaultDebounce,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if stat, err := os.Stat(absPath); err == nil {
		w.lastModified, w.size = stat.ModTime(), stat.Size()
	}
	return w, nil
}

// Path returns the absolute manifest path.
func (w *Watcher) Path() string { return w.path }

// Run watches the manifest directory until ctx is cancelled. It returns nil
// on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsWatcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch manifest directory: %w", err)
	}
	w.logger.Info(ctx, "watching plugin manifest", "path", w.path)

	// Armed only by manifest events.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if absPath, err := filepath.Abs(event.Name); err != nil || absPath != w.path {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			if !w.changed() {
				continue
			}
			if err := w.Reload(ctx); err != nil {
				w.logger.Error(ctx, "manifest reload failed", "path", w.path, "error", err)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watcher error", "path", w.path, "error", err)
		}
	}
}

// Reload loads the manifest and reconciles the host with it. An invalid
// manifest leaves the host untouched.
func (w *Watcher) Reload(ctx context.Context) error {
	ctx, _ = logging.EnsureCorrelationID(ctx)
	descriptors, err := w.source.Descriptors(ctx, w.path)
	if err != nil {
		return err
	}
	if w.reconciler == nil {
		return errors.New("watcher has no reconciler")
	}
	if err := w.reconciler.Reconcile(ctx, descriptors); err != nil {
		return err
	}
	w.logger.Info(ctx, "plugin manifest reloaded", "path", w.path, "plugins", len(descriptors))
	return nil
}

// changed compares the file against the last seen modification time and size.
func (w *Watcher) changed() bool {
	stat, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if stat.ModTime().Equal(w.lastModified) && stat.Size() == w.size {
		return false
	}
	w.lastModified, w.size = stat.ModTime(), stat.Size()
	return true
}
