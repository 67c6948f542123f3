package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/ratelimit"
	"github.com/set-night/shareit/internal/telegram"
)

// RateLimit returns middleware that drops updates from chats over their token bucket.
func RateLimit(limiter *ratelimit.Limiter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			_, chatID, userID := describe(update)
			if userID == 0 {
				next(ctx, b, update)
				return
			}

			if limiter.Allow(IdentityFor(userID)) {
				next(ctx, b, update)
				return
			}

			slog.Debug("rate limited", "chat_id", chatID, "user_id", userID)
			if update.CallbackQuery != nil {
				telegram.AnswerCallback(ctx, b, update.CallbackQuery, "⏳ Too many requests, slow down a little.")
				return
			}
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "⏳ Too many requests, slow down a little.",
			})
		}
	}
}
