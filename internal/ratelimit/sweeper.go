package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper periodically evicts expired entries until ctx is done. An
// interval of zero uses the limiter window.
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.cfg.Window
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Rate limit sweeper started", "interval", interval, "window", l.cfg.Window)

		for {
			select {
			case now := <-ticker.C:
				if removed := l.Sweep(now); removed > 0 {
					slog.Debug("Rate limit sweeper evicted clients", "removed", removed, "tracked", l.Len())
				}
			case <-ctx.Done():
				slog.Info("Rate limit sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
