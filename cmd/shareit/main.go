package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/set-night/shareit/internal/app"
	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/httpapi"
	"github.com/set-night/shareit/internal/metrics"
	"github.com/set-night/shareit/internal/ratelimit"
	"github.com/set-night/shareit/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("shareit stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("shareit stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelServiceName, cfg.OTelExporterEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// Connect to database and run migrations
	store, err := app.OpenLedger(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	svc := app.NewServices(cfg, store, m)
	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Background jobs
	jobs := cron.New()
	if _, err := jobs.AddFunc(cfg.RecoverySchedule, func() { recoverAwards(ctx, svc) }); err != nil {
		return err
	}
	if _, err := jobs.AddFunc("@every 5m", func() {
		if n := limiter.Cleanup(config.LimiterIdleTTL); n > 0 {
			slog.Debug("rate limiters evicted", "count", n)
		}
	}); err != nil {
		return err
	}
	jobs.Start()
	defer func() { <-jobs.Stop().Done() }()

	// Awards interrupted before the last shutdown are finished right away.
	recoverAwards(ctx, svc)

	var verifier *httpapi.Verifier
	if cfg.AuthEnabled() {
		verifier = httpapi.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	} else {
		slog.Warn("AUTH_JWT_SECRET not set, /v1 API disabled")
	}

	api := httpapi.New(httpapi.Deps{
		Users:           svc.Users,
		Businesses:      svc.Businesses,
		Recommendations: svc.Recommendations,
		Saves:           svc.Saves,
		Rewards:         svc.Rewards,
		Verifier:        verifier,
		Limiter:         limiter,
		Metrics:         m,
		Ready:           func(r *http.Request) error { return store.Ping(r.Context()) },
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting http server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if cfg.BotEnabled() {
		g.Go(func() error {
			return runBot(gctx, cfg, svc, limiter)
		})
	} else {
		slog.Info("BOT_TOKEN not set, telegram bot disabled")
	}

	return g.Wait()
}

func recoverAwards(ctx context.Context, svc *app.Services) {
	n, err := svc.Rewards.RecoverAwards(ctx)
	if err != nil {
		slog.Error("award recovery failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("recovered referral awards", "count", n)
	}
}
