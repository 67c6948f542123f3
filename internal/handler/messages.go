package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/telegram"
)

const dateLayout = "2006-01-02"

const welcomeText = "👋 Hi, *%s*!\n\n" +
	"ShareIt lets you recommend local businesses to friends. " +
	"When a friend redeems an offer you shared, you earn *%d coins*.\n\n" +
	"📋 *Commands:*\n" +
	"/businesses — Participating businesses\n" +
	"/recommend — Share a recommendation (send it as a photo caption)\n" +
	"/saved — Offers you saved\n" +
	"/mine — Your recommendations\n" +
	"/wallet — Coins and referrals"

const recommendUsageText = "📸 Send a photo with the caption:\n\n" +
	"`/recommend <business id> <your recommendation>`\n\n" +
	"Up to %d characters. See /businesses for ids."

// userMessage turns a service error into text safe to show in chat.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyClaimed):
		return "This offer was already redeemed."
	case errors.Is(err, domain.ErrUnknownBusiness):
		return "Unknown business. See /businesses for valid ids."
	case errors.Is(err, domain.ErrUnknownRecommendation):
		return "This recommendation no longer exists."
	case errors.Is(err, domain.ErrInvalidText):
		return fmt.Sprintf("Recommendation text must be 1 to %d characters.", config.MaxRecommendationText)
	case errors.Is(err, domain.ErrInvalidImageRef):
		return "That photo can't be used, please try another one."
	case errors.Is(err, domain.ErrInvalidReferrer):
		return "This offer can't be redeemed with that referral."
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		return "Offer not found."
	case errors.Is(err, errRecommendUsage):
		return fmt.Sprintf(recommendUsageText, config.MaxRecommendationText)
	}
	return "⚠️ Something went wrong, please try again in a moment."
}

// report logs unexpected failures and returns the chat reply for err.
func (h *Handler) report(err error, where string) string {
	if !domain.IsValidation(err) && !domain.IsConflict(err) && !errors.Is(err, errRecommendUsage) {
		slog.Error("bot handler failed", "handler", where, "error", err)
		h.tgLogger.LogError(err, where)
	}
	return userMessage(err)
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	if err := telegram.SendLongMessage(ctx, b, chatID, text, markup); err != nil {
		slog.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

func callbackChatID(q *models.CallbackQuery) int64 {
	if q.Message.Message != nil {
		return q.Message.Message.Chat.ID
	}
	return q.From.ID
}

func businessTitle(b *domain.Business, fallbackID string) string {
	if b == nil {
		return telegram.EscapeMarkdown(fallbackID)
	}
	title := "*" + telegram.EscapeMarkdown(b.Name) + "*"
	if b.DiscountText != "" {
		title += " · " + telegram.EscapeMarkdown(b.DiscountText)
	}
	return title
}

func formatRecommendation(rec *domain.Recommendation, b *domain.Business) string {
	var sb strings.Builder
	sb.WriteString(businessTitle(b, rec.BusinessID))
	sb.WriteString("\n\n“")
	sb.WriteString(telegram.EscapeMarkdown(rec.Text))
	sb.WriteString("”\n\n")
	fmt.Fprintf(&sb, "💾 Saved %d times", rec.SavedCount)
	return sb.String()
}

func formatBusiness(b *domain.Business) string {
	var sb strings.Builder
	sb.WriteString(businessTitle(b, b.ID))
	if b.Description != "" {
		sb.WriteString("\n\n" + telegram.EscapeMarkdown(b.Description))
	}
	if b.Category != "" {
		sb.WriteString("\n🏷 " + telegram.EscapeMarkdown(b.Category))
	}
	if b.Location != "" {
		sb.WriteString("\n📍 " + telegram.EscapeMarkdown(b.Location))
	}
	if b.ValidUntil != nil {
		sb.WriteString("\n⏳ Valid until " + b.ValidUntil.Format(dateLayout))
	}
	return sb.String()
}

func formatTransaction(tx domain.CoinTransaction) string {
	return fmt.Sprintf("%+d · %s · %s", tx.Amount, strings.ReplaceAll(string(tx.Kind), "_", " "), tx.CreatedAt.In(time.UTC).Format(dateLayout))
}
