package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/middleware"
	"github.com/set-night/shareit/internal/telegram"
)

func (h *Handler) handleWallet(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	profile, err := h.users.Profile(ctx, user.ID)
	if err != nil {
		h.reply(ctx, b, chatID, h.report(err, "wallet"), nil)
		return
	}
	txs, err := h.users.Transactions(ctx, user.ID, config.TransactionsPerPage)
	if err != nil {
		h.reply(ctx, b, chatID, h.report(err, "wallet transactions"), nil)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🪙 *Wallet*\n\nBalance: *%d* coins\nSuccessful referrals: %d\nSaved offers: %d\n",
		profile.CoinBalance, profile.ReferralCount, profile.SavedOfferCount)
	if len(txs) > 0 {
		sb.WriteString("\n*Recent activity*\n")
		for _, tx := range txs {
			sb.WriteString(formatTransaction(tx) + "\n")
		}
	}
	h.reply(ctx, b, chatID, sb.String(), nil)
}

func (h *Handler) handleMine(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	recs, err := h.recommendations.ListByCreator(ctx, user.ID, config.DefaultListLimit)
	if err != nil {
		h.reply(ctx, b, chatID, h.report(err, "mine"), nil)
		return
	}
	if len(recs) == 0 {
		h.reply(ctx, b, chatID, fmt.Sprintf(recommendUsageText, config.MaxRecommendationText), nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("📝 *Your recommendations*\n")
	for i := range recs {
		business, err := h.businesses.Get(ctx, recs[i].BusinessID)
		if err != nil {
			slog.Warn("business lookup failed", "business_id", recs[i].BusinessID, "error", err)
		}
		link := telegram.DeepLink(h.botUsername, config.StartRecommendationPrefix+recs[i].ID)
		fmt.Fprintf(&sb, "\n%s\n“%s”\n💾 %d · 👁 %d\n%s\n",
			businessTitle(business, recs[i].BusinessID),
			telegram.EscapeMarkdown(recs[i].Text),
			recs[i].SavedCount, recs[i].ViewCount,
			telegram.EscapeMarkdown(link))
	}
	h.reply(ctx, b, chatID, sb.String(), nil)
}
