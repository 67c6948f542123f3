package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
)

type UserService struct {
	store ledger.Store
	now   func() time.Time
}

func NewUserService(store ledger.Store) *UserService {
	return &UserService{store: store, now: time.Now}
}

// EnsureUser bootstraps the profile of an authenticated identity with zeroed
// counters. Existing profiles are returned unchanged.
func (s *UserService) EnsureUser(ctx context.Context, id, displayName, photoRef string) (*domain.User, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, domain.ErrUserNotFound
	}
	user, created, err := s.store.EnsureUser(ctx, domain.User{
		ID:          id,
		DisplayName: strings.TrimSpace(displayName),
		PhotoRef:    photoRef,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("ensure user: %w", err)
	}
	return &user, created, nil
}

func (s *UserService) Profile(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Transactions returns the user's wallet history, newest first.
func (s *UserService) Transactions(ctx context.Context, id string, limit int) ([]domain.CoinTransaction, error) {
	return s.store.ListCoinTransactions(ctx, id, clampLimit(limit, config.TransactionsPerPage, config.MaxListLimit))
}
