package stack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps a registry in sync with the stacks directory. When stacks are
// added or removed on disk, the next webhook request sees the updated
// allow-list without a server restart.
type Watcher struct {
	registry *Registry
	rescan   func() ([]*Stack, error)
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher on the stacks root. rescan is called on every
// relevant filesystem event and its result replaces the registry contents.
func NewWatcher(root string, registry *Registry, rescan func() ([]*Stack, error), logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch stacks directory: %w", err)
	}

	return &Watcher{
		registry: registry,
		rescan:   rescan,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Start runs the event loop until the context is cancelled or the watcher
// is closed.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if !relevant(event) {
					continue
				}

				stacks, err := w.rescan()
				if err != nil {
					w.logger.Error("Stack rescan failed", "error", err, "event", event.Name)
					continue
				}
				w.registry.Replace(stacks)
				w.logger.Info("Stack registry refreshed", "count", len(stacks), "trigger", event.Name)

			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("Stack watcher error", "error", err)
			}
		}
	}()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// relevant filters events down to the ones that can change the set of
// deployable stacks. Writes to files inside a stack don't affect discovery.
func relevant(event fsnotify.Event) bool {
	return event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Remove) ||
		event.Op.Has(fsnotify.Rename)
}
