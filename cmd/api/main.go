package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/storefront/internal/account"
	"github.com/geocoder89/storefront/internal/auth"
	"github.com/geocoder89/storefront/internal/bootstrap"
	"github.com/geocoder89/storefront/internal/catalog"
	"github.com/geocoder89/storefront/internal/config"
	httpx "github.com/geocoder89/storefront/internal/http"
	"github.com/geocoder89/storefront/internal/http/handlers"
	"github.com/geocoder89/storefront/internal/mail"
	"github.com/geocoder89/storefront/internal/media"
)

func main() {
	ctx := context.Background()

	rt, err := bootstrap.Start(ctx, "storefront-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close(context.Background())

	cfg := rt.Config
	log := rt.Log

	indexCtx, cancel := config.WithTimeout(10 * time.Second)
	if err := rt.Search.EnsureIndex(indexCtx); err != nil {
		// search answers 502 until the engine is back; the worker catches up
		log.Error("search index not ready", "index", cfg.Search.Index, "err", err)
	}
	cancel()

	mailer, err := mail.New(cfg.Mail, log, rt.Prom)
	if err != nil {
		log.Error("mailer setup failed", "err", err)
		os.Exit(1)
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)

	accounts := account.NewService(account.Deps{
		Users:     rt.Stores.Users,
		Mailer:    mailer,
		Tokens:    tokens,
		Log:       log,
		ExposeOTP: cfg.IsDev(),
	})

	listCache, cachePing := rt.NewListCache(ctx, 30*time.Second)

	products := catalog.NewService(catalog.Deps{
		Products: rt.Stores.Products,
		Index:    rt.Search,
		Cache:    listCache,
		Log:      log,
	})

	var images handlers.ImageUploader
	if cfg.S3.Bucket != "" {
		s3Client, err := media.NewS3Client(ctx, cfg.S3)
		if err != nil {
			log.Error("s3 setup failed", "err", err)
			os.Exit(1)
		}
		images = media.NewStore(s3Client, cfg.S3)
	}

	checks := map[string]func(ctx context.Context) error{
		"store":  rt.Stores.Ping,
		"search": rt.Search.Ping,
	}
	if cachePing != nil {
		checks["cache"] = cachePing
	}

	router := httpx.NewRouter(httpx.Deps{
		Config:      cfg,
		Log:         log,
		Prom:        rt.Prom,
		Metrics:     rt.MetricsHandler(),
		Accounts:    accounts,
		Catalog:     products,
		Searcher:    rt.Search,
		Todos:       rt.Stores.Todos,
		Tokens:      tokens,
		Images:      images,
		ReadyChecks: checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", rt.Stores.Driver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
