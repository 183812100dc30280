package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the pgx pool. Zero values fall back to defaults.
type PoolOptions struct {
	AppName        string
	MaxConns       int32
	MinConns       int32
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.AppName == "" {
		o.AppName = "storefront"
	}
	if o.MaxConns <= 0 {
		o.MaxConns = 10
	}
	if o.MinConns < 0 || o.MinConns > o.MaxConns {
		o.MinConns = 0
	}
	if o.MaxIdleTime <= 0 {
		o.MaxIdleTime = 5 * time.Minute
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	return o
}

// NewPool opens a pool and pings it once so misconfiguration fails at boot.
func NewPool(ctx context.Context, dbURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	opts = opts.withDefaults()

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.MaxConnIdleTime = opts.MaxIdleTime
	cfg.HealthCheckPeriod = time.Minute
	cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	cfg.ConnConfig.RuntimeParams["application_name"] = opts.AppName

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
