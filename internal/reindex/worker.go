package reindex

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/observability"
)

type Store interface {
	ListUnindexed(ctx context.Context, limit int) ([]product.Product, error)
	MarkIndexed(ctx context.Context, id string, at time.Time) error
	ListAfterID(ctx context.Context, afterID string, limit int) ([]product.Product, error)
}

type Indexer interface {
	IndexProduct(ctx context.Context, p product.Product) error
	BulkIndex(ctx context.Context, products []product.Product) error
	RecreateIndex(ctx context.Context) error
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
}

// Worker periodically pushes products whose search document is missing or
// stale back into the index.
type Worker struct {
	cfg   Config
	store Store
	index Indexer
	log   *slog.Logger
	prom  *observability.Prom
	stats *observability.SyncStats
	now   func() time.Time

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, store Store, index Indexer, log *slog.Logger, prom *observability.Prom, stats *observability.SyncStats) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if log == nil {
		log = slog.Default()
	}
	if stats == nil {
		stats = observability.NewSyncStats()
	}

	return &Worker{
		cfg:   cfg,
		store: store,
		index: index,
		log:   log,
		prom:  prom,
		stats: stats,
		now:   time.Now,
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

func (w *Worker) Stats() *observability.SyncStats {
	return w.stats
}

// Run sweeps until ctx is cancelled. Failed sweeps back off exponentially.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	w.log.Info("reindex.worker_started",
		"poll_interval", w.cfg.PollInterval.String(),
		"batch_size", w.cfg.BatchSize,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	failures := 0

	for {
		select {
		case <-ctx.Done():
			w.log.Info("reindex.worker_stopping")
			return nil

		case <-timer.C:
			n, err := w.Sweep(ctx)

			delay := w.cfg.PollInterval
			if err != nil {
				delay = ExponentialBackoff(failures)
				failures++
				w.log.Warn("reindex.sweep_failed",
					"err", err,
					"consecutive_failures", failures,
					"retry_in", delay.String(),
				)
			} else {
				failures = 0
				if n > 0 {
					w.log.Info("reindex.sweep_done", "indexed", n)
				}
			}

			timer.Reset(delay)
		}
	}
}
