package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/config"
)

// Telegram caps photo captions well below message length.
const maxCaptionLen = 1024

// SendLongMessage sends a potentially long message, splitting it into parts if needed.
// Falls back to plain text if Markdown parsing fails.
func SendLongMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) error {
	parts := SplitMessage(text, config.MaxTelegramMessageLen)

	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeMarkdownV1,
		}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		if _, err := b.SendMessage(ctx, params); err != nil {
			slog.Warn("markdown send failed, falling back to plain text", "error", err)
			params.ParseMode = ""
			if _, err := b.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}

	return nil
}

// SendCard sends a photo with caption and keyboard, falling back to a text
// message when the photo cannot be delivered.
func SendCard(ctx context.Context, b *bot.Bot, chatID int64, imageRef, caption string, markup models.ReplyMarkup) error {
	if imageRef != "" && len([]rune(caption)) <= maxCaptionLen {
		_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       InputPhoto(imageRef),
			Caption:     caption,
			ParseMode:   models.ParseModeMarkdownV1,
			ReplyMarkup: markup,
		})
		if err == nil {
			return nil
		}
		slog.Warn("failed to send card photo, falling back to text", "error", err)
	}
	return SendLongMessage(ctx, b, chatID, caption, markup)
}

// AnswerCallback acknowledges a callback query, optionally with a toast.
func AnswerCallback(ctx context.Context, b *bot.Bot, q *models.CallbackQuery, text string) {
	if q == nil {
		return
	}
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: q.ID,
		Text:            text,
	}); err != nil {
		slog.Debug("answer callback failed", "error", err)
	}
}
