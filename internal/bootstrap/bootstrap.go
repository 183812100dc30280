package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/storefront/internal/cache"
	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/geocoder89/storefront/internal/redisclient"
	"github.com/geocoder89/storefront/internal/repo"
	"github.com/geocoder89/storefront/internal/search"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runtime holds what every command needs: config, logging, metrics,
// tracing, stores and the search engine.
type Runtime struct {
	Config   config.Config
	Log      *slog.Logger
	Registry *prometheus.Registry
	Prom     *observability.Prom
	Stores   repo.Stores
	Search   search.Engine

	closers []func(ctx context.Context)
}

// Start loads .env and the environment, then connects the store and the
// search engine. service names the process in traces.
func Start(ctx context.Context, service string) (*Runtime, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log := observability.NewLogger(cfg.Env, cfg.LogLevel).With("service", service)
	slog.SetDefault(log)

	rt := &Runtime{Config: cfg, Log: log}

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: service,
			Environment: cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    cfg.OTLPInsecure,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			log.Warn("tracing disabled", "err", err)
		} else {
			rt.closers = append(rt.closers, func(ctx context.Context) { _ = shutdown(ctx) })
		}
	}

	rt.Registry = prometheus.NewRegistry()
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt.Prom = observability.NewProm(rt.Registry)

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	stores, err := repo.Open(connectCtx, cfg, rt.Prom, log)
	if err != nil {
		rt.Close(context.Background())
		return nil, err
	}
	rt.Stores = stores
	rt.closers = append(rt.closers, func(context.Context) { stores.Close() })

	engine, err := NewSearchEngine(cfg, rt.Prom)
	if err != nil {
		rt.Close(context.Background())
		return nil, err
	}
	rt.Search = engine

	log.Info("runtime ready",
		"env", cfg.Env,
		"store", stores.Driver,
		"search", fmt.Sprintf("%T", engine),
	)
	return rt, nil
}

// NewSearchEngine returns the Elasticsearch client, or an in-process index
// when running fully in memory without a configured node.
func NewSearchEngine(cfg config.Config, prom *observability.Prom) (search.Engine, error) {
	if cfg.StoreDriver == "memory" && cfg.Search.Node == "" {
		return search.NewMemoryIndex(), nil
	}

	client, err := search.NewClient(cfg.Search, prom)
	if err != nil {
		return nil, fmt.Errorf("search client: %w", err)
	}
	return client, nil
}

// NewListCache prefers Redis when REDIS_ADDR is set and reachable, falling
// back to a per-process cache.
func (r *Runtime) NewListCache(ctx context.Context, ttl time.Duration) (cache.ListCache, func(ctx context.Context) error) {
	if r.Config.Redis.Addr == "" {
		return cache.NewMemoryListCache(ttl), nil
	}

	rc := redisclient.New(r.Config.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rc.Ping(pingCtx); err != nil {
		r.Log.Warn("redis unavailable, using in-process list cache", "addr", r.Config.Redis.Addr, "err", err)
		_ = rc.Close()
		return cache.NewMemoryListCache(ttl), nil
	}

	r.closers = append(r.closers, func(context.Context) { _ = rc.Close() })
	return cache.NewRedisListCache(rc.Raw(), ttl, r.Log, r.Prom), rc.Ping
}

func (r *Runtime) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i](ctx)
	}
	r.closers = nil
}
