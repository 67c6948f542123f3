package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/service"
	"github.com/set-night/shareit/internal/telegram"
)

type ctxKey string

const UserKey ctxKey = "user"

// GetUser extracts user from context.
func GetUser(ctx context.Context) *domain.User {
	u, ok := ctx.Value(UserKey).(*domain.User)
	if !ok {
		return nil
	}
	return u
}

// WithUser stores u in ctx the way UserLoader does.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}

// IdentityFor maps a Telegram account onto a ledger user id.
func IdentityFor(telegramID int64) string {
	return "tg:" + strconv.FormatInt(telegramID, 10)
}

func displayName(from *models.User) string {
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if name == "" {
		return from.Username
	}
	return name
}

// UserLoader returns middleware that bootstraps the ledger profile of the sender.
func UserLoader(users *service.UserService, tgLogger *telegram.TelegramLogger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var from *models.User
			if update.Message != nil {
				from = update.Message.From
			} else if update.CallbackQuery != nil {
				from = &update.CallbackQuery.From
			}

			if from == nil || from.IsBot {
				next(ctx, b, update)
				return
			}

			user, created, err := users.EnsureUser(ctx, IdentityFor(from.ID), displayName(from), "")
			if err != nil {
				slog.Error("failed to load user", "telegram_id", from.ID, "error", err)
				next(ctx, b, update)
				return
			}
			if created {
				slog.Info("user registered", "user_id", user.ID)
				tgLogger.LogRegistration(user.ID, user.DisplayName)
			}

			next(WithUser(ctx, user), b, update)
		}
	}
}

// TelegramID reverses IdentityFor for users who joined through the bot.
func TelegramID(userID string) (int64, bool) {
	raw, ok := strings.CutPrefix(userID, "tg:")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil
}
