package core

// scheduler.go prunes the import batch journal in the background.
//
// The pruner runs once on start and then every CheckInterval until its
// context is cancelled. Failed runs are logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// JournalRetention controls batch journal pruning.
type JournalRetention struct {
	MaxAge        time.Duration // entries older than this are deleted; 0 disables pruning
	BatchSize     int           // rows deleted per statement (default: 5000)
	CheckInterval time.Duration // how often to run (default: 24h)
}

func (c JournalRetention) withDefaults() JournalRetention {
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// RunJournalPruner blocks until ctx is done, deleting expired journal
// entries on every tick. It returns immediately when MaxAge is zero.
func (im *Importer) RunJournalPruner(ctx context.Context, cfg JournalRetention) {
	if cfg.MaxAge <= 0 {
		return
	}
	cfg = cfg.withDefaults()
	slog.Info("journal pruner started",
		"max_age", cfg.MaxAge.String(),
		"batch_size", cfg.BatchSize,
		"interval", cfg.CheckInterval.String(),
	)

	im.pruneOnce(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("journal pruner stopped")
			return
		case <-ticker.C:
			im.pruneOnce(ctx, cfg)
		}
	}
}

func (im *Importer) pruneOnce(ctx context.Context, cfg JournalRetention) {
	start := time.Now()
	deleted, err := im.PruneJournal(ctx, start.Add(-cfg.MaxAge), cfg.BatchSize)
	if err != nil {
		slog.Error("journal prune failed", "deleted", deleted, "error", err)
		return
	}
	slog.Info("journal pruned",
		"deleted", deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// PruneJournal deletes journal entries created before cutoff, batchSize
// rows per transaction, and returns how many were removed.
func (im *Importer) PruneJournal(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 5000
	}
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		var n int64
		err := im.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
			var err error
			n, err = tx.PruneBatches(ctx, cutoff, batchSize)
			return err
		})
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(batchSize) {
			return total, nil
		}
	}
}
