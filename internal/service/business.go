package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
)

var hundred = decimal.NewFromInt(100)

type BusinessService struct {
	store ledger.Store
	cache *catalogCache
	now   func() time.Time
}

func NewBusinessService(store ledger.Store) *BusinessService {
	return &BusinessService{store: store, cache: newCatalogCache(config.CatalogCacheTTL), now: time.Now}
}

func (s *BusinessService) List(ctx context.Context) ([]domain.Business, error) {
	if list, ok := s.cache.get(s.now()); ok {
		return list, nil
	}
	list, err := s.store.ListBusinesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	if list == nil {
		list = []domain.Business{}
	}
	s.cache.set(list, s.now())
	return list, nil
}

func (s *BusinessService) Get(ctx context.Context, id string) (*domain.Business, error) {
	b, err := s.store.GetBusiness(ctx, id)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Upsert writes a catalog entry. Only the catalog importer calls it.
func (s *BusinessService) Upsert(ctx context.Context, b domain.Business) error {
	b.ID = strings.TrimSpace(b.ID)
	b.Name = strings.TrimSpace(b.Name)
	if b.ID == "" || b.Name == "" {
		return domain.ErrInvalidBusiness
	}
	b.UpdatedAt = s.now()
	if err := s.store.UpsertBusiness(ctx, b); err != nil {
		return fmt.Errorf("upsert business %s: %w", b.ID, err)
	}
	s.cache.invalidate()
	return nil
}

func (s *BusinessService) Stats(ctx context.Context, id string) (*domain.BusinessStats, error) {
	stats, err := s.store.BusinessStats(ctx, id)
	if err != nil {
		return nil, err
	}
	stats.ClaimRate = ClaimRate(stats.Claims, stats.Saves)
	return &stats, nil
}

// ClaimRate returns claims per hundred saves rounded to one decimal place.
func ClaimRate(claims, saves int64) decimal.Decimal {
	if saves == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(claims).Mul(hundred).Div(decimal.NewFromInt(saves)).Round(1)
}
