package store

import (
	"context"
	"log/slog"
	"time"
)

const retentionSweepInterval = time.Hour

// StartRetentionWorker runs a background goroutine that periodically purges
// inbox messages older than the retention age.
func StartRetentionWorker(ctx context.Context, repo Repository, retention time.Duration) {
	ticker := time.NewTicker(retentionSweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", retentionSweepInterval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				purgeExpired(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func purgeExpired(ctx context.Context, repo Repository, retention time.Duration) {
	deleted, err := repo.PurgeOlderThan(ctx, retention)
	if err != nil {
		slog.Error("Retention worker failed to purge messages", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Retention worker purged messages", "count", deleted)
	}
}
