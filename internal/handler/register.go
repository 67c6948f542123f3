package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/recommend", bot.MatchTypePrefix, h.handleRecommendText)
	h.bot.RegisterHandler(bot.HandlerTypePhotoCaption, "/recommend", bot.MatchTypePrefix, h.handleRecommendPhoto)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/businesses", bot.MatchTypePrefix, h.handleBusinesses)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/saved", bot.MatchTypePrefix, h.handleSaved)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/wallet", bot.MatchTypePrefix, h.handleWallet)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/mine", bot.MatchTypePrefix, h.handleMine)

	// Offer callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, saveCallbackPrefix, bot.MatchTypePrefix, h.handleSaveCallback)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, claimCallbackPrefix, bot.MatchTypePrefix, h.handleClaimCallback)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cur", bot.MatchTypeExact, h.handleNoop)
}

// handleNoop acknowledges non-interactive inline buttons.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegram.AnswerCallback(ctx, b, update.CallbackQuery, "")
}
