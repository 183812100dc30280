package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/storefront/internal/bootstrap"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/geocoder89/storefront/internal/reindex"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	rt, err := bootstrap.Start(ctx, "storefront-worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close(context.Background())

	cfg := rt.Config
	log := rt.Log

	if err := rt.Search.EnsureIndex(ctx); err != nil {
		log.Warn("search index not ready yet", "err", err)
	}

	w := reindex.New(reindex.Config{
		PollInterval: cfg.ReindexInterval,
		BatchSize:    100,
	}, rt.Stores.Products, rt.Search, log, rt.Prom, observability.NewSyncStats())

	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.MetricsHandler())
	mux.Handle("/", w.HealthHandler(rt.Stores.Ping))

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("worker health server starting", "port", cfg.WorkerPort)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker has started")

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
