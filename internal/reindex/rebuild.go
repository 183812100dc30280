package reindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Rebuild drops the index and bulk-loads every stored product in id order.
func Rebuild(ctx context.Context, store Store, index Indexer, batchSize int, log *slog.Logger) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	if log == nil {
		log = slog.Default()
	}

	if err := index.RecreateIndex(ctx); err != nil {
		return 0, fmt.Errorf("recreate index: %w", err)
	}

	total := 0
	after := ""

	for {
		batch, err := store.ListAfterID(ctx, after, batchSize)
		if err != nil {
			return total, fmt.Errorf("list products after %q: %w", after, err)
		}
		if len(batch) == 0 {
			break
		}

		if err := index.BulkIndex(ctx, batch); err != nil {
			return total, fmt.Errorf("bulk index: %w", err)
		}

		at := time.Now().UTC()
		for _, p := range batch {
			if err := store.MarkIndexed(ctx, p.ID, at); err != nil {
				log.Warn("reindex.mark_failed", "product_id", p.ID, "err", err)
			}
		}

		total += len(batch)
		after = batch[len(batch)-1].ID
		log.Info("reindex.batch_done", "count", len(batch), "total", total)

		if len(batch) < batchSize {
			break
		}
	}

	return total, nil
}
