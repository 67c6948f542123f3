package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"

	"github.com/set-night/shareit/internal/app"
	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/handler"
	"github.com/set-night/shareit/internal/middleware"
	"github.com/set-night/shareit/internal/ratelimit"
	"github.com/set-night/shareit/internal/telegram"
)

// runBot serves the Telegram transport until ctx is cancelled.
func runBot(ctx context.Context, cfg *config.Config, svc *app.Services, limiter *ratelimit.Limiter) error {
	var tgLogger *telegram.TelegramLogger

	opts := []bot.Option{
		bot.WithMiddlewares(
			func(next bot.HandlerFunc) bot.HandlerFunc {
				// tgLogger is created after the bot itself.
				return middleware.Recover(tgLogger)(next)
			},
			middleware.Logging(),
			middleware.Timeout(config.RequestTimeout),
			middleware.RateLimit(limiter),
			func(next bot.HandlerFunc) bot.HandlerFunc {
				return middleware.UserLoader(svc.Users, tgLogger)(next)
			},
		),
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	username := cfg.BotUsername
	if username == "" {
		username = me.Username
	}

	tgLogger = telegram.NewTelegramLogger(b, cfg)

	h := handler.New(handler.Deps{
		Bot:             b,
		Users:           svc.Users,
		Businesses:      svc.Businesses,
		Recommendations: svc.Recommendations,
		Saves:           svc.Saves,
		Rewards:         svc.Rewards,
		TgLogger:        tgLogger,
		BotUsername:     username,
	})
	h.Register()

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	slog.Info("starting bot", "username", username, "id", me.ID)
	b.Start(ctx)
	slog.Info("bot stopped gracefully")
	return nil
}
