package store

import (
	"context"
	"log/slog"
	"time"
)

const pruneInterval = time.Hour

// StartPruner deletes exchanges older than retention every interval until
// ctx is done. A zero interval uses one hour.
func StartPruner(ctx context.Context, repo Repository, retention, interval time.Duration) {
	if interval <= 0 {
		interval = pruneInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Exchange pruner started", "interval", interval, "retention", retention)

		for {
			select {
			case now := <-ticker.C:
				pruneExchanges(ctx, repo, now.Add(-retention))
			case <-ctx.Done():
				slog.Info("Exchange pruner shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func pruneExchanges(ctx context.Context, repo Repository, cutoff time.Time) {
	n, err := repo.PruneBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Exchange pruner failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Exchange pruner removed old records", "count", n, "cutoff", cutoff)
	}
}
