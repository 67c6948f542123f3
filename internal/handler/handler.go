package handler

import (
	"github.com/go-telegram/bot"

	"github.com/set-night/shareit/internal/service"
	"github.com/set-night/shareit/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot             *bot.Bot
	users           *service.UserService
	businesses      *service.BusinessService
	recommendations *service.RecommendationService
	saves           *service.SavedOfferService
	rewards         *service.RewardService
	tgLogger        *telegram.TelegramLogger
	botUsername     string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot             *bot.Bot
	Users           *service.UserService
	Businesses      *service.BusinessService
	Recommendations *service.RecommendationService
	Saves           *service.SavedOfferService
	Rewards         *service.RewardService
	TgLogger        *telegram.TelegramLogger
	BotUsername     string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:             deps.Bot,
		users:           deps.Users,
		businesses:      deps.Businesses,
		recommendations: deps.Recommendations,
		saves:           deps.Saves,
		rewards:         deps.Rewards,
		tgLogger:        deps.TgLogger,
		botUsername:     deps.BotUsername,
	}
}
