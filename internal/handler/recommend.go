package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/middleware"
	"github.com/set-night/shareit/internal/objectstore"
	"github.com/set-night/shareit/internal/telegram"
)

// handleRecommendText answers a bare /recommend with instructions, since a
// recommendation always carries a photo.
func (h *Handler) handleRecommendText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, b, update.Message.Chat.ID, fmt.Sprintf(recommendUsageText, config.MaxRecommendationText), nil)
}

func (h *Handler) handleRecommendPhoto(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || len(msg.Photo) == 0 {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	businessID, text, err := parseRecommendCaption(msg.Caption)
	if err != nil {
		h.reply(ctx, b, msg.Chat.ID, userMessage(err), nil)
		return
	}

	imageRef := objectstore.TelegramRef(telegram.LargestPhoto(msg.Photo))
	id, err := h.recommendations.Create(ctx, businessID, user.ID, text, imageRef)
	if err != nil {
		h.reply(ctx, b, msg.Chat.ID, h.report(err, "recommend"), nil)
		return
	}

	slog.Info("recommendation published", "user_id", user.ID, "recommendation_id", id)
	h.tgLogger.LogRecommendation(user.ID, businessID, id)

	link := telegram.DeepLink(h.botUsername, config.StartRecommendationPrefix+id)
	kb := telegram.InlineKeyboard(
		telegram.ButtonRow(telegram.URLButton("📤 Share with friends", telegram.ShareURL(link, text))),
	)
	reply := fmt.Sprintf("✅ Recommendation published!\n\nShare this link. You earn *%d coins* each time a friend redeems the offer:\n%s",
		h.rewards.Coins(), telegram.EscapeMarkdown(link))
	h.reply(ctx, b, msg.Chat.ID, reply, kb)
}
