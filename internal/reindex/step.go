package reindex

import (
	"context"
	"time"
)

// Sweep indexes one batch of out-of-sync products and returns how many made
// it into the index. A single failing document does not stop the batch; the
// last indexing error is returned so the loop can back off.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	w.stats.IncSweeps()
	defer func() { w.stats.ObserveDuration(time.Since(start)) }()

	listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	items, err := w.store.ListUnindexed(listCtx, w.cfg.BatchSize)
	cancel()
	if err != nil {
		return 0, err
	}

	if w.prom != nil {
		w.prom.ReindexBacklog.Set(float64(len(items)))
	}

	var lastErr error
	indexed := 0

	for _, p := range items {
		if err := w.index.IndexProduct(ctx, p); err != nil {
			lastErr = err
			w.stats.IncFailed()
			w.observe("failed")
			w.log.Warn("reindex.index_failed", "product_id", p.ID, "err", err)
			continue
		}

		if err := w.store.MarkIndexed(ctx, p.ID, w.now().UTC()); err != nil {
			lastErr = err
			w.stats.IncFailed()
			w.observe("failed")
			w.log.Warn("reindex.mark_failed", "product_id", p.ID, "err", err)
			continue
		}

		indexed++
		w.stats.IncIndexed()
		w.observe("indexed")
	}

	return indexed, lastErr
}

func (w *Worker) observe(result string) {
	if w.prom == nil {
		return
	}
	w.prom.ReindexResults.WithLabelValues(result).Inc()
}
