package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/set-night/shareit/internal/config"
)

// TelegramLogger posts operational events to forum topics of a log chat.
type TelegramLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewTelegramLogger(b *bot.Bot, cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{bot: b, cfg: cfg}
}

type LogType string

const (
	LogTypeError          LogType = "error"
	LogTypeRegistration   LogType = "registration"
	LogTypeRecommendation LogType = "recommendation"
	LogTypeClaim          LogType = "claim"
)

func (l *TelegramLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeRegistration:
		return l.cfg.LogTopicRegistration
	case LogTypeRecommendation:
		return l.cfg.LogTopicRecommendation
	case LogTypeClaim:
		return l.cfg.LogTopicClaim
	}
	return 0
}

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	message = Truncate(message, config.MaxTelegramMessageLen)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		EscapeMarkdown(context), err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *TelegramLogger) LogRegistration(userID, name string) {
	msg := fmt.Sprintf("👤 *New user*\n\n*ID:* `%s`\n*Name:* %s", userID, EscapeMarkdown(name))
	l.Log(LogTypeRegistration, msg)
}

func (l *TelegramLogger) LogRecommendation(userID, businessID, recommendationID string) {
	msg := fmt.Sprintf("📝 *New recommendation*\n\n*User:* `%s`\n*Business:* `%s`\n*ID:* `%s`",
		userID, businessID, recommendationID)
	l.Log(LogTypeRecommendation, msg)
}

func (l *TelegramLogger) LogClaim(claimerID, referrerID, savedOfferID string, coins int64) {
	msg := fmt.Sprintf("🎟 *Offer claimed*\n\n*Claimer:* `%s`\n*Referrer:* `%s`\n*Saved offer:* `%s`\n*Coins:* %d",
		claimerID, referrerID, savedOfferID, coins)
	l.Log(LogTypeClaim, msg)
}
