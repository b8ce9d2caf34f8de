// Package retention periodically removes old audit records.
package retention

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes records created before a cutoff.
type Pruner interface {
	PruneCommands(cutoff time.Time) (int64, error)
}

type Worker struct {
	store    Pruner
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewWorker(store Pruner, maxAge, interval time.Duration) *Worker {
	return &Worker{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
	}
}

// Start prunes once immediately, then every interval until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Starting retention worker", "max_age", w.maxAge, "interval", w.interval)

	if err := w.pruneOnce(); err != nil {
		slog.Error("Error during retention cleanup", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := w.pruneOnce(); err != nil {
				slog.Error("Error during retention cleanup", "error", err)
			}
		case <-ctx.Done():
			slog.Info("Retention worker stopped")
			return
		}
	}
}

func (w *Worker) pruneOnce() error {
	cutoff := w.now().Add(-w.maxAge)

	deleted, err := w.store.PruneCommands(cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		slog.Info("Pruned audit records", "deleted", deleted, "cutoff", cutoff)
	}
	return nil
}
