package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/geocoder89/storefront/internal/bootstrap"
	"github.com/geocoder89/storefront/internal/catalog"
	"github.com/geocoder89/storefront/internal/reindex"
)

func main() {
	n := flag.Int("n", 15, "number of demo products")
	reset := flag.Bool("reset", false, "delete existing products first")
	flag.Parse()

	ctx := context.Background()

	rt, err := bootstrap.Start(ctx, "storefront-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close(context.Background())

	if err := run(ctx, rt, *n, *reset); err != nil {
		rt.Log.Error("seed failed", "err", err)
		rt.Close(context.Background())
		os.Exit(1)
	}
}

func run(ctx context.Context, rt *bootstrap.Runtime, n int, reset bool) error {
	if reset {
		deleted, err := rt.Stores.Products.DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("delete products: %w", err)
		}
		rt.Log.Info("products deleted", "count", deleted)
	}

	if err := rt.Search.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, p := range catalog.DemoProducts(n, rng) {
		if err := rt.Stores.Products.Create(ctx, p); err != nil {
			return fmt.Errorf("create %q: %w", p.Name, err)
		}
	}
	rt.Log.Info("products created", "count", n)

	if reset {
		_, err := reindex.Rebuild(ctx, rt.Stores.Products, rt.Search, 500, rt.Log)
		return err
	}

	w := reindex.New(reindex.Config{BatchSize: n}, rt.Stores.Products, rt.Search, rt.Log, rt.Prom, nil)
	indexed, err := w.Sweep(ctx)
	rt.Log.Info("products indexed", "count", indexed)
	return err
}
