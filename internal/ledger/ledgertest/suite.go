// Package ledgertest holds behaviour checks shared by every ledger.Store
// implementation.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
)

// Opener returns an empty store. The store is closed by the suite.
type Opener func(t *testing.T) ledger.Store

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s ledger.Store)
	}{
		{"EnsureUser", testEnsureUser},
		{"Businesses", testBusinesses},
		{"Recommendations", testRecommendations},
		{"SavedOfferUnique", testSavedOfferUnique},
		{"ListSavedOffers", testListSavedOffers},
		{"Increment", testIncrement},
		{"ConcurrentIncrement", testConcurrentIncrement},
		{"ClaimSavedOffer", testClaimSavedOffer},
		{"ConcurrentClaim", testConcurrentClaim},
		{"ReferralAward", testReferralAward},
		{"CoinTransactions", testCoinTransactions},
		{"WithinTxRollback", testWithinTxRollback},
		{"BusinessStats", testBusinessStats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

// Seed inserts a user, a business and a recommendation created by that user.
func Seed(t *testing.T, s ledger.Store, suffix string) (domain.User, domain.Business, domain.Recommendation) {
	t.Helper()
	ctx := context.Background()

	u, _, err := s.EnsureUser(ctx, domain.User{ID: "user-" + suffix, DisplayName: "User " + suffix, CreatedAt: base})
	require.NoError(t, err)

	b := domain.Business{ID: "biz-" + suffix, Name: "Cafe " + suffix, DiscountText: "10% off", UpdatedAt: base}
	require.NoError(t, s.UpsertBusiness(ctx, b))

	r := domain.Recommendation{
		ID:         "rec-" + suffix,
		BusinessID: b.ID,
		CreatorID:  u.ID,
		Text:       "great coffee",
		ImageRef:   "https://img.example.com/" + suffix + ".jpg",
		CreatedAt:  base,
	}
	require.NoError(t, s.CreateRecommendation(ctx, r))
	return u, b, r
}

func ensureUser(t *testing.T, s ledger.Store, id string) domain.User {
	t.Helper()
	u, _, err := s.EnsureUser(context.Background(), domain.User{ID: id, CreatedAt: base})
	require.NoError(t, err)
	return u
}

func testEnsureUser(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	u, created, err := s.EnsureUser(ctx, domain.User{ID: "u1", DisplayName: "Ann", CreatedAt: base})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ann", u.DisplayName)
	assert.Zero(t, u.CoinBalance)
	assert.True(t, u.CreatedAt.Equal(base))

	again, created, err := s.EnsureUser(ctx, domain.User{ID: "u1", DisplayName: "Other"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Ann", again.DisplayName)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testBusinesses(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	until := base.Add(48 * time.Hour)

	require.NoError(t, s.UpsertBusiness(ctx, domain.Business{ID: "b2", Name: "Zeta", UpdatedAt: base}))
	require.NoError(t, s.UpsertBusiness(ctx, domain.Business{ID: "b1", Name: "Alpha", Location: "Main St", ValidUntil: &until, UpdatedAt: base}))
	require.NoError(t, s.UpsertBusiness(ctx, domain.Business{ID: "b2", Name: "Beta", DiscountText: "2 for 1", UpdatedAt: base}))

	b, err := s.GetBusiness(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Main St", b.Location)
	require.NotNil(t, b.ValidUntil)
	assert.True(t, b.ValidUntil.Equal(until))

	list, err := s.ListBusinesses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "Beta", list[1].Name)
	assert.Equal(t, "2 for 1", list[1].DiscountText)
	assert.Nil(t, list[1].ValidUntil)

	_, err = s.GetBusiness(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testRecommendations(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	u, b, first := Seed(t, s, "a")
	other := ensureUser(t, s, "other")

	for i := 1; i <= 3; i++ {
		creator := u.ID
		if i == 3 {
			creator = other.ID
		}
		require.NoError(t, s.CreateRecommendation(ctx, domain.Recommendation{
			ID:         fmt.Sprintf("rec-%d", i),
			BusinessID: b.ID,
			CreatorID:  creator,
			Text:       "text",
			ImageRef:   "telegram:file",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := s.GetRecommendation(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Text, got.Text)
	assert.Zero(t, got.SavedCount)

	recent, err := s.ListRecommendations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "rec-3", recent[0].ID)
	assert.Equal(t, "rec-2", recent[1].ID)

	mine, err := s.ListRecommendationsByCreator(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, "rec-2", mine[0].ID)

	_, err = s.GetRecommendation(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testSavedOfferUnique(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, _, r := Seed(t, s, "a")
	saver := ensureUser(t, s, "saver")

	first, created, err := s.CreateSavedOffer(ctx, domain.SavedOffer{ID: "so-1", UserID: saver.ID, RecommendationID: r.ID, SavedAt: base})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, first.Saved)
	assert.False(t, first.Claimed)
	assert.Nil(t, first.ClaimedAt)

	second, created, err := s.CreateSavedOffer(ctx, domain.SavedOffer{ID: "so-2", UserID: saver.ID, RecommendationID: r.ID, SavedAt: base})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "so-1", second.ID)

	n, err := s.CountSavedOffers(ctx, r.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.GetSavedOffer(ctx, "so-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testListSavedOffers(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, b, r := Seed(t, s, "a")
	saver := ensureUser(t, s, "saver")

	_, _, err := s.CreateSavedOffer(ctx, domain.SavedOffer{ID: "so-1", UserID: saver.ID, RecommendationID: r.ID, SavedAt: base})
	require.NoError(t, err)

	list, err := s.ListSavedOffers(ctx, saver.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "so-1", list[0].ID)
	assert.Equal(t, r.ID, list[0].Recommendation.ID)
	assert.Equal(t, b.Name, list[0].BusinessName)
	assert.Equal(t, b.DiscountText, list[0].DiscountText)

	empty, err := s.ListSavedOffers(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testIncrement(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	u, _, r := Seed(t, s, "a")

	v, err := s.Increment(ctx, ledger.UserCoins, u.ID, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 5, v)
	v, err = s.Increment(ctx, ledger.UserCoins, u.ID, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 10, v)

	v, err = s.Increment(ctx, ledger.RecommendationViews, r.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	_, err = s.Increment(ctx, ledger.UserReferrals, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Increment(ctx, ledger.Counter(99), u.ID, 1)
	assert.Error(t, err)

	_, err = s.Increment(ctx, ledger.UserSavedOffers, u.ID, -1)
	assert.Error(t, err, "counters never go negative")

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, got.CoinBalance)
	assert.Zero(t, got.SavedOfferCount)
}

func testConcurrentIncrement(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, _, r := Seed(t, s, "a")

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Increment(ctx, ledger.RecommendationSaved, r.ID, 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetRecommendation(ctx, r.ID)
	require.NoError(t, err)
	assert.EqualValues(t, workers, got.SavedCount)
}

func testClaimSavedOffer(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, _, r := Seed(t, s, "a")
	saver := ensureUser(t, s, "saver")
	_, _, err := s.CreateSavedOffer(ctx, domain.SavedOffer{ID: "so-1", UserID: saver.ID, RecommendationID: r.ID, SavedAt: base})
	require.NoError(t, err)

	at := base.Add(time.Hour)
	ok, err := s.ClaimSavedOffer(ctx, "so-1", at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ClaimSavedOffer(ctx, "so-1", at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	o, err := s.GetSavedOffer(ctx, "so-1")
	require.NoError(t, err)
	assert.True(t, o.Claimed)
	require.NotNil(t, o.ClaimedAt)
	assert.True(t, o.ClaimedAt.Equal(at))

	_, err = s.ClaimSavedOffer(ctx, "missing", at)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending, err := s.ListUnawardedClaims(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "so-1", pending[0].ID)
}

func testConcurrentClaim(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, _, r := Seed(t, s, "a")
	saver := ensureUser(t, s, "saver")
	_, _, err := s.CreateSavedOffer(ctx, domain.SavedOffer{ID: "so-1", UserID: saver.ID, RecommendationID: r.ID, SavedAt: base})
	require.NoError(t, err)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ClaimSavedOffer(ctx, "so-1", base)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if ok {
				wins++
			}
		}()
	}
	wg.Wait()
	require.NoError(t, errors.Join(errs...))
	assert.Equal(t, 1, wins)
}

func testReferralAward(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	u, _, r := Seed(t, s, "a")
	saver := ensureUser(t, s, "saver")
	_, _, err := s.CreateSavedOffer(ctx, domain.SavedOffer{ID: "so-1", UserID: saver.ID, RecommendationID: r.ID, SavedAt: base})
	require.NoError(t, err)
	_, err = s.ClaimSavedOffer(ctx, "so-1", base)
	require.NoError(t, err)

	award := domain.ReferralAward{SavedOfferID: "so-1", UserID: u.ID, Coins: 5, AwardedAt: base}
	inserted, err := s.InsertReferralAward(ctx, award)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertReferralAward(ctx, award)
	require.NoError(t, err)
	assert.False(t, inserted)

	pending, err := s.ListUnawardedClaims(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func testCoinTransactions(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	u := ensureUser(t, s, "u1")

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.InsertCoinTransaction(ctx, domain.CoinTransaction{
			ID:        fmt.Sprintf("tx-%d", i),
			UserID:    u.ID,
			Amount:    int64(i),
			Kind:      domain.TxKindReferralReward,
			Reference: fmt.Sprintf("so-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := s.ListCoinTransactions(ctx, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "tx-3", list[0].ID)
	assert.Equal(t, domain.TxKindReferralReward, list[0].Kind)
	assert.EqualValues(t, 3, list[0].Amount)
	assert.Equal(t, "tx-2", list[1].ID)
}

func testWithinTxRollback(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	u := ensureUser(t, s, "u1")
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(q ledger.Queries) error {
		if _, err := q.Increment(ctx, ledger.UserCoins, u.ID, 7); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CoinBalance)

	err = s.WithinTx(ctx, func(q ledger.Queries) error {
		_, err := q.Increment(ctx, ledger.UserCoins, u.ID, 7)
		return err
	})
	require.NoError(t, err)

	got, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.CoinBalance)
}

func testBusinessStats(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, b, r := Seed(t, s, "a")
	saver := ensureUser(t, s, "saver")

	_, _, err := s.CreateSavedOffer(ctx, domain.SavedOffer{ID: "so-1", UserID: saver.ID, RecommendationID: r.ID, SavedAt: base})
	require.NoError(t, err)
	_, err = s.Increment(ctx, ledger.RecommendationSaved, r.ID, 1)
	require.NoError(t, err)
	_, err = s.Increment(ctx, ledger.RecommendationViews, r.ID, 4)
	require.NoError(t, err)
	_, err = s.ClaimSavedOffer(ctx, "so-1", base)
	require.NoError(t, err)
	_, err = s.InsertReferralAward(ctx, domain.ReferralAward{SavedOfferID: "so-1", UserID: r.CreatorID, Coins: 5, AwardedAt: base})
	require.NoError(t, err)

	stats, err := s.BusinessStats(ctx, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Recommendations)
	assert.EqualValues(t, 1, stats.Saves)
	assert.EqualValues(t, 4, stats.Views)
	assert.EqualValues(t, 1, stats.Claims)
	assert.EqualValues(t, 5, stats.CoinsAwarded)

	_, err = s.BusinessStats(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
