package app

import (
	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/metrics"
	"github.com/set-night/shareit/internal/objectstore"
	"github.com/set-night/shareit/internal/service"
)

type Services struct {
	Users           *service.UserService
	Businesses      *service.BusinessService
	Recommendations *service.RecommendationService
	Saves           *service.SavedOfferService
	Rewards         *service.RewardService
}

func NewServices(cfg *config.Config, store ledger.Store, m *metrics.Metrics) *Services {
	retry := service.NewRetrier(cfg.StoreRetryAttempts, cfg.StoreRetryMaxWait, m)
	return &Services{
		Users:           service.NewUserService(store),
		Businesses:      service.NewBusinessService(store),
		Recommendations: service.NewRecommendationService(store, objectstore.NewPolicy(cfg.ImageHosts), m),
		Saves:           service.NewSavedOfferService(store, retry, m),
		Rewards:         service.NewRewardService(store, retry, m, cfg.RewardCoins),
	}
}
