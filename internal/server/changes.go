package server

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/ariel/internal/watch"
)

// watchFile runs the file watcher until ctx is cancelled. A watcher that
// cannot start is logged and otherwise ignored: polling keeps working.
func (s *Server) watchFile(ctx context.Context) {
	if snap, err := s.source.Snapshot(); err == nil {
		s.tracker.Prime(snap)
	}

	opts := watch.Options{
		File:     s.cfg.FilePath,
		Debounce: s.cfg.Debounce,
		Logger:   s.logger,
		OnEvent:  func(fsnotify.Event) { s.source.Invalidate() },
	}

	if err := watch.Run(ctx, opts, s.reportChange); err != nil {
		s.logger.Warn("file watcher disabled", slog.String("error", err.Error()))
	}
}

// reportChange logs what happened to the watched file after a burst of
// filesystem events.
func (s *Server) reportChange(_ context.Context, ops fsnotify.Op) {
	s.source.Invalidate()

	snap, readErr := s.source.Snapshot()

	change, err := s.tracker.Observe(snap, readErr)
	if err != nil {
		s.logger.Error("tracking change", slog.String("error", err.Error()))
		return
	}

	s.metrics.observeChange(string(change.Kind))

	switch change.Kind {
	case watch.ChangeUnchanged:
		s.logger.Debug("file touched without content change",
			slog.String("file", s.cfg.FilePath),
			slog.String("ops", ops.String()),
		)

	case watch.ChangeRemoved, watch.ChangeMissing:
		s.logger.Warn("diagram missing",
			slog.String("file", s.cfg.FilePath),
			slog.String("error", change.Err.Error()),
		)

	default:
		attrs := []any{
			slog.String("file", s.cfg.DisplayName()),
			slog.String("kind", string(change.Kind)),
			slog.String("fingerprint", change.Fingerprint),
			slog.String("summary", change.Summary()),
		}

		if change.TypeErr != nil {
			s.logger.Warn("diagram changed", append(attrs, slog.String("syntax", change.TypeErr.Error()))...)
		} else {
			s.logger.Info("diagram changed", attrs...)
		}

		if change.Diff != "" {
			s.logger.Debug("diagram diff", slog.String("diff", change.Diff))
		}
	}
}
