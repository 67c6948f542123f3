package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/middleware"
	"github.com/set-night/shareit/internal/telegram"
)

func (h *Handler) handleSaveCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}
	user := middleware.GetUser(ctx)
	recID, ok := callbackID(q.Data, saveCallbackPrefix)
	if user == nil || !ok {
		telegram.AnswerCallback(ctx, b, q, "")
		return
	}

	if _, err := h.saves.Save(ctx, user.ID, recID); err != nil {
		telegram.AnswerCallback(ctx, b, q, h.report(err, "save offer"))
		return
	}
	telegram.AnswerCallback(ctx, b, q, "💾 Saved! Find it in /saved")
}

func (h *Handler) handleSaved(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	offers, err := h.saves.ListSaved(ctx, user.ID)
	if err != nil {
		h.reply(ctx, b, chatID, h.report(err, "saved"), nil)
		return
	}
	if len(offers) == 0 {
		h.reply(ctx, b, chatID, "You have no saved offers yet. Open a friend's recommendation and tap 💾 Save offer.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("💾 *Saved offers*\n")
	var rows [][]models.InlineKeyboardButton
	for i, o := range offers {
		title := "*" + telegram.EscapeMarkdown(o.BusinessName) + "*"
		if o.DiscountText != "" {
			title += " · " + telegram.EscapeMarkdown(o.DiscountText)
		}
		fmt.Fprintf(&sb, "\n%d. %s\n“%s”\n", i+1, title, telegram.EscapeMarkdown(o.Recommendation.Text))

		if o.Claimed && o.ClaimedAt != nil {
			fmt.Fprintf(&sb, "✅ Redeemed %s\n", o.ClaimedAt.Format(dateLayout))
			continue
		}
		fmt.Fprintf(&sb, "🕓 Saved %s\n", o.SavedAt.Format(dateLayout))
		label := telegram.Truncate(fmt.Sprintf("🎟 Redeem %d. %s", i+1, o.BusinessName), 60)
		rows = append(rows, telegram.ButtonRow(telegram.InlineButton(label, callbackData(claimCallbackPrefix, o.ID))))
	}

	var markup models.ReplyMarkup
	if len(rows) > 0 {
		markup = telegram.InlineKeyboard(rows...)
	}
	h.reply(ctx, b, chatID, sb.String(), markup)
}

// handleClaimCallback redeems one of the caller's saved offers and credits
// whoever recommended it.
func (h *Handler) handleClaimCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}
	user := middleware.GetUser(ctx)
	offerID, ok := callbackID(q.Data, claimCallbackPrefix)
	if user == nil || !ok {
		telegram.AnswerCallback(ctx, b, q, "")
		return
	}

	offer, err := h.saves.Get(ctx, offerID)
	if err == nil && offer.UserID != user.ID {
		err = domain.ErrNotFound
	}
	if err != nil {
		telegram.AnswerCallback(ctx, b, q, h.report(err, "claim lookup"))
		return
	}

	rec, err := h.recommendations.Get(ctx, offer.RecommendationID)
	if err != nil {
		telegram.AnswerCallback(ctx, b, q, h.report(err, "claim recommendation"))
		return
	}

	result, err := h.rewards.Claim(ctx, offer.ID, rec.CreatorID)
	if err != nil {
		telegram.AnswerCallback(ctx, b, q, h.report(err, "claim"))
		return
	}
	telegram.AnswerCallback(ctx, b, q, "✅ Redeemed!")

	slog.Info("offer claimed", "user_id", user.ID, "saved_offer_id", offer.ID, "referrer_id", rec.CreatorID)
	h.tgLogger.LogClaim(user.ID, rec.CreatorID, offer.ID, result.CoinsAwarded)

	business, _ := h.businesses.Get(ctx, rec.BusinessID)
	h.reply(ctx, b, callbackChatID(q),
		"🎉 *Offer redeemed!*\n\nShow this message at the counter.\n\n"+businessTitle(business, rec.BusinessID), nil)

	h.notifyReferrer(ctx, b, rec.CreatorID, result)
}

func (h *Handler) notifyReferrer(ctx context.Context, b *bot.Bot, referrerID string, result domain.ClaimResult) {
	chatID, ok := middleware.TelegramID(referrerID)
	if !ok {
		return
	}
	text := fmt.Sprintf("🪙 A friend redeemed an offer you recommended! +%d coins\n\nSuccessful referrals: %d",
		result.CoinsAwarded, result.NewReferralCount)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		slog.Debug("failed to notify referrer", "referrer_id", referrerID, "error", err)
	}
}
