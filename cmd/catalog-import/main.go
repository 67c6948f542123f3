// Command catalog-import loads participating businesses from a YAML or HTML
// catalog into the ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/set-night/shareit/internal/app"
	"github.com/set-night/shareit/internal/catalog"
	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/metrics"
)

func main() {
	source := flag.String("source", "", "catalog file path or http(s) URL (.yaml, .yml or .html)")
	dryRun := flag.Bool("dry-run", false, "parse the catalog without writing it")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *source == "" {
		fmt.Fprintln(os.Stderr, "usage: catalog-import -source <file or url> [-dry-run]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *source, *dryRun); err != nil {
		slog.Error("catalog import failed", "source", *source, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, source string, dryRun bool) error {
	businesses, err := catalog.NewLoader().Load(ctx, source)
	if err != nil {
		return err
	}
	slog.Info("catalog parsed", "source", source, "businesses", len(businesses))
	if dryRun {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := app.OpenLedger(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := app.NewServices(cfg, store, metrics.New())
	res, err := catalog.Import(ctx, svc.Businesses, businesses)
	slog.Info("catalog imported", "upserted", res.Upserted, "failed", res.Failed)
	return err
}
