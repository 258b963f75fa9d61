package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventFunc is called synchronously for every relevant event, before
// debouncing.
type EventFunc func(event fsnotify.Event)

// ChangeFunc is called once per debounced burst of events with the union
// of their operations.
type ChangeFunc func(ctx context.Context, ops fsnotify.Op)

// Options configures the watch behaviour.
type Options struct {
	// File is the single file to observe.
	File string

	// Debounce is the quiet period before ChangeFunc runs.
	Debounce time.Duration

	// OnEvent runs for every relevant event. Optional.
	OnEvent EventFunc

	// Logger is used for structured logging.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 200 * time.Millisecond,
		Logger:   slog.Default(),
	}
}

// Run watches the directory containing opts.File and blocks until ctx is
// cancelled. Watching the directory rather than the file keeps events
// flowing when editors replace the file or it is deleted and recreated.
func Run(ctx context.Context, opts Options, onChange ChangeFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	target, err := filepath.Abs(opts.File)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", opts.File, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching directory %q: %w", dir, err)
	}

	opts.Logger.Debug("watching file",
		slog.String("file", target),
		slog.Duration("debounce", opts.Debounce),
	)

	debouncer := NewDebouncer(opts.Debounce, func(ops fsnotify.Op) {
		if ctx.Err() != nil {
			return
		}

		onChange(ctx, ops)
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event, target) {
				continue
			}

			if opts.OnEvent != nil {
				opts.OnEvent(event)
			}

			debouncer.Trigger(event.Op)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// isRelevant keeps content-affecting events on the target file only.
func isRelevant(event fsnotify.Event, target string) bool {
	if event.Op == 0 {
		return false
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	return filepath.Clean(event.Name) == target
}
