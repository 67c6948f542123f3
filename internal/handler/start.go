package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/middleware"
	"github.com/set-night/shareit/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	chatID := update.Message.Chat.ID

	switch prefix, id := parseStartPayload(update.Message.Text); prefix {
	case config.StartRecommendationPrefix:
		h.showRecommendation(ctx, b, chatID, id)
		return
	case config.StartBusinessPrefix:
		h.showBusiness(ctx, b, chatID, id)
		return
	}

	h.reply(ctx, b, chatID, fmt.Sprintf(welcomeText, telegram.EscapeMarkdown(user.DisplayName), h.rewards.Coins()), nil)
}

// showRecommendation renders a shared recommendation and counts the view.
func (h *Handler) showRecommendation(ctx context.Context, b *bot.Bot, chatID int64, id string) {
	rec, err := h.recommendations.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		err = domain.ErrUnknownRecommendation
	}
	if err != nil {
		h.reply(ctx, b, chatID, h.report(err, "start recommendation"), nil)
		return
	}

	if _, err := h.recommendations.RecordView(ctx, rec.ID); err != nil {
		slog.Warn("failed to record view", "recommendation_id", rec.ID, "error", err)
	}

	business, err := h.businesses.Get(ctx, rec.BusinessID)
	if err != nil {
		slog.Warn("business lookup failed", "business_id", rec.BusinessID, "error", err)
	}

	link := telegram.DeepLink(h.botUsername, config.StartRecommendationPrefix+rec.ID)
	kb := telegram.InlineKeyboard(
		telegram.ButtonRow(telegram.InlineButton("💾 Save offer", callbackData(saveCallbackPrefix, rec.ID))),
		telegram.ButtonRow(telegram.URLButton("📤 Share", telegram.ShareURL(link, rec.Text))),
	)

	if err := telegram.SendCard(ctx, b, chatID, rec.ImageRef, formatRecommendation(rec, business), kb); err != nil {
		slog.Error("failed to send recommendation", "recommendation_id", rec.ID, "error", err)
	}
}

func (h *Handler) showBusiness(ctx context.Context, b *bot.Bot, chatID int64, id string) {
	business, err := h.businesses.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		err = domain.ErrUnknownBusiness
	}
	if err != nil {
		h.reply(ctx, b, chatID, h.report(err, "start business"), nil)
		return
	}

	text := formatBusiness(business) + "\n\n" +
		"To recommend it, send a photo with the caption:\n`/recommend " + business.ID + " <your text>`"
	h.reply(ctx, b, chatID, text, nil)
}

func (h *Handler) handleBusinesses(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	list, err := h.businesses.List(ctx)
	if err != nil {
		h.reply(ctx, b, chatID, h.report(err, "businesses"), nil)
		return
	}
	if len(list) == 0 {
		h.reply(ctx, b, chatID, "No businesses are participating yet.", nil)
		return
	}

	text := "🏪 *Participating businesses*\n"
	for i := range list {
		text += "\n" + businessTitle(&list[i], list[i].ID) +
			"\n" + telegram.EscapeMarkdown(telegram.DeepLink(h.botUsername, config.StartBusinessPrefix+list[i].ID)) + "\n"
	}
	h.reply(ctx, b, chatID, text, nil)
}
