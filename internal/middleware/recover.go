package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/telegram"
)

// Recover returns middleware that turns a handler panic into an error report.
func Recover(tgLogger *telegram.TelegramLogger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				updateType, chatID, userID := describe(update)
				slog.Error("panic recovered in handler",
					"panic", r,
					"update_id", update.ID,
					"type", updateType,
					"chat_id", chatID,
					"user_id", userID,
					"stack", string(debug.Stack()),
				)
				tgLogger.LogError(fmt.Errorf("panic: %v", r), fmt.Sprintf("%s from %d", updateType, userID))
			}()
			next(ctx, b, update)
		}
	}
}
