package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/storefront/internal/bootstrap"
	"github.com/geocoder89/storefront/internal/reindex"
)

func main() {
	batch := flag.Int("batch", 500, "products per bulk request")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "storefront-reindex")
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close(context.Background())

	total, err := reindex.Rebuild(ctx, rt.Stores.Products, rt.Search, *batch, rt.Log)
	if err != nil {
		rt.Log.Error("reindex failed", "indexed", total, "err", err)
		rt.Close(context.Background())
		os.Exit(1)
	}

	rt.Log.Info("reindex complete", "index", rt.Config.Search.Index, "indexed", total)
}
