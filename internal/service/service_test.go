package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/metrics"
	"github.com/set-night/shareit/internal/objectstore"
	"github.com/set-night/shareit/internal/repository/sqlite"
)

const testCoins = 5

var errTransient = errors.New("connection reset")

// flakyStore fails the next n transactions before reaching the real store.
type flakyStore struct {
	ledger.Store
	failures atomic.Int32
	txCalls  atomic.Int32
}

func (f *flakyStore) WithinTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	f.txCalls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return errTransient
	}
	return f.Store.WithinTx(ctx, fn)
}

type fixture struct {
	store           *flakyStore
	users           *UserService
	businesses      *BusinessService
	recommendations *RecommendationService
	saves           *SavedOfferService
	rewards         *RewardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := &flakyStore{Store: db}
	m := metrics.New()
	retry := NewRetrier(4, 5*time.Millisecond, m)
	return &fixture{
		store:           store,
		users:           NewUserService(store),
		businesses:      NewBusinessService(store),
		recommendations: NewRecommendationService(store, objectstore.NewPolicy([]string{"img.example.com"}), m),
		saves:           NewSavedOfferService(store, retry, m),
		rewards:         NewRewardService(store, retry, m, testCoins),
	}
}

func (f *fixture) user(t *testing.T, id string) {
	t.Helper()
	_, _, err := f.users.EnsureUser(context.Background(), id, strings.ToUpper(id), "")
	require.NoError(t, err)
}

// scenario seeds business b1 and alice's recommendation r1.
func (f *fixture) scenario(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.businesses.Upsert(ctx, domain.Business{ID: "b1", Name: "Bean There", DiscountText: "10% off"}))
	f.user(t, "alice")
	f.user(t, "bob")
	f.user(t, "carol")

	r1, err := f.recommendations.Create(ctx, "b1", "alice", "Great coffee!", "https://img.example.com/r1.jpg")
	require.NoError(t, err)
	return r1
}

func (f *fixture) savedCount(t *testing.T, recID string) int64 {
	t.Helper()
	agg, err := f.recommendations.Aggregate(context.Background(), recID)
	require.NoError(t, err)
	return agg.SavedCount
}

func TestScenarioA_SaveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)

	s1, err := f.saves.Save(ctx, "bob", r1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.savedCount(t, r1))

	again, err := f.saves.Save(ctx, "bob", r1)
	require.NoError(t, err)
	assert.Equal(t, s1, again)
	assert.EqualValues(t, 1, f.savedCount(t, r1))

	bob, err := f.users.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, bob.SavedOfferCount)
}

func TestScenarioB_ClaimOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)
	s1, err := f.saves.Save(ctx, "bob", r1)
	require.NoError(t, err)

	res, err := f.rewards.Claim(ctx, s1, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, testCoins, res.CoinsAwarded)
	assert.EqualValues(t, 1, res.NewReferralCount)

	_, err = f.rewards.Claim(ctx, s1, "alice")
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	alice, err := f.users.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, testCoins, alice.CoinBalance)
	assert.EqualValues(t, 1, alice.ReferralCount)
	assert.EqualValues(t, 1, f.savedCount(t, r1), "claiming leaves savedCount alone")

	txs, err := f.users.Transactions(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, s1, txs[0].Reference)
	assert.EqualValues(t, testCoins, txs[0].Amount)
}

func TestScenarioC_WrongReferrer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)
	s1, err := f.saves.Save(ctx, "bob", r1)
	require.NoError(t, err)

	_, err = f.rewards.Claim(ctx, s1, "carol")
	assert.ErrorIs(t, err, domain.ErrInvalidReferrer)

	offer, err := f.saves.Get(ctx, s1)
	require.NoError(t, err)
	assert.False(t, offer.Claimed)

	carol, err := f.users.Profile(ctx, "carol")
	require.NoError(t, err)
	assert.Zero(t, carol.CoinBalance)
}

func TestClaimUnknownSavedOffer(t *testing.T) {
	f := newFixture(t)
	f.scenario(t)

	_, err := f.rewards.Claim(context.Background(), "never-saved", "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentClaimsAwardOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)
	s1, err := f.saves.Save(ctx, "bob", r1)
	require.NoError(t, err)

	const n = 10
	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		conflict atomic.Int32
		other    = make(chan error, n)
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.rewards.Claim(ctx, s1, "alice")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrAlreadyClaimed):
				conflict.Add(1)
			default:
				other <- err
			}
		}()
	}
	wg.Wait()
	close(other)
	for err := range other {
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, n-1, conflict.Load())

	alice, err := f.users.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, testCoins, alice.CoinBalance)
	assert.EqualValues(t, 1, alice.ReferralCount)
}

func TestConcurrentSavesConverge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := f.saves.Save(ctx, "bob", r1)
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.EqualValues(t, 1, f.savedCount(t, r1))
}

func TestSavedCountMatchesSavedOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)

	for _, u := range []string{"bob", "carol", "bob", "dave", "carol"} {
		f.user(t, u)
		_, err := f.saves.Save(ctx, u, r1)
		require.NoError(t, err)
	}

	n, err := f.store.CountSavedOffers(ctx, r1)
	require.NoError(t, err)
	assert.Equal(t, n, f.savedCount(t, r1))
	assert.EqualValues(t, 3, n)
}

func TestSaveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)

	_, err := f.saves.Save(ctx, "bob", "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownRecommendation)

	_, err = f.saves.Save(ctx, "ghost", r1)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.EqualValues(t, 2, f.store.txCalls.Load(), "validation errors are not retried")
}

func TestSaveRetriesTransientFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)

	f.store.failures.Store(2)
	s1, err := f.saves.Save(ctx, "bob", r1)
	require.NoError(t, err)
	assert.NotEmpty(t, s1)
	assert.EqualValues(t, 3, f.store.txCalls.Load())
	assert.EqualValues(t, 1, f.savedCount(t, r1))
}

func TestSaveGivesUpAfterBoundedAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)

	f.store.failures.Store(100)
	_, err := f.saves.Save(ctx, "bob", r1)
	assert.ErrorIs(t, err, errTransient)
	assert.EqualValues(t, 4, f.store.txCalls.Load())
	assert.Zero(t, f.savedCount(t, r1))
}

func TestRecoverAwardsAfterFailedAward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)
	s1, err := f.saves.Save(ctx, "bob", r1)
	require.NoError(t, err)

	f.store.failures.Store(100)
	_, err = f.rewards.Claim(ctx, s1, "alice")
	require.ErrorIs(t, err, errTransient)
	f.store.failures.Store(0)

	offer, err := f.saves.Get(ctx, s1)
	require.NoError(t, err)
	assert.True(t, offer.Claimed, "the claim itself is durable")

	_, err = f.rewards.Claim(ctx, s1, "alice")
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	applied, err := f.rewards.RecoverAwards(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	applied, err = f.rewards.RecoverAwards(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)

	alice, err := f.users.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, testCoins, alice.CoinBalance)
	assert.EqualValues(t, 1, alice.ReferralCount)
}

func TestRecoverAwardsSkipsAwardedClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)
	s1, err := f.saves.Save(ctx, "bob", r1)
	require.NoError(t, err)
	_, err = f.rewards.Claim(ctx, s1, "alice")
	require.NoError(t, err)

	applied, err := f.rewards.RecoverAwards(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestCountersNeverDecrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)

	var last domain.User
	check := func() {
		alice, err := f.users.Profile(ctx, "alice")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, alice.CoinBalance, last.CoinBalance)
		assert.GreaterOrEqual(t, alice.ReferralCount, last.ReferralCount)
		last = *alice
	}

	for _, u := range []string{"bob", "carol"} {
		id, err := f.saves.Save(ctx, u, r1)
		require.NoError(t, err)
		check()
		_, _ = f.rewards.Claim(ctx, id, "carol")
		check()
		_, err = f.rewards.Claim(ctx, id, "alice")
		require.NoError(t, err)
		check()
		_, _ = f.rewards.Claim(ctx, id, "alice")
		check()
	}
	assert.EqualValues(t, 2*testCoins, last.CoinBalance)
}

func TestCreateRecommendationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.scenario(t)
	img := "https://img.example.com/x.jpg"

	tests := []struct {
		name     string
		business string
		creator  string
		text     string
		image    string
		want     error
	}{
		{"unknown business", "nope", "alice", "ok", img, domain.ErrUnknownBusiness},
		{"empty text", "b1", "alice", "   ", img, domain.ErrInvalidText},
		{"text too long", "b1", "alice", strings.Repeat("a", 141), img, domain.ErrInvalidText},
		{"foreign image host", "b1", "alice", "ok", "https://other.example.com/x.jpg", domain.ErrInvalidImageRef},
		{"unknown creator", "b1", "ghost", "ok", img, domain.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.recommendations.Create(ctx, tt.business, tt.creator, tt.text, tt.image)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateRecommendationTrimsAndCountsRunes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.scenario(t)

	text := strings.Repeat("ש", 140)
	id, err := f.recommendations.Create(ctx, "b1", "alice", "  "+text+"\n", "telegram:AgACAgI")
	require.NoError(t, err)

	rec, err := f.recommendations.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, text, rec.Text)
	assert.Zero(t, rec.SavedCount)
	assert.Zero(t, rec.ViewCount)
}

func TestRecordViewAndListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)

	views, err := f.recommendations.RecordView(ctx, r1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, views)

	_, err = f.recommendations.RecordView(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	recent, err := f.recommendations.ListRecent(ctx, 1000)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	mine, err := f.recommendations.ListByCreator(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, r1, mine[0].ID)

	_, err = f.saves.Save(ctx, "bob", r1)
	require.NoError(t, err)
	saved, err := f.saves.ListSaved(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Bean There", saved[0].BusinessName)
}

func TestBusinessStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.scenario(t)

	var first string
	for i, u := range []string{"bob", "carol", "dave"} {
		f.user(t, u)
		id, err := f.saves.Save(ctx, u, r1)
		require.NoError(t, err)
		if i == 0 {
			first = id
		}
	}
	_, err := f.rewards.Claim(ctx, first, "alice")
	require.NoError(t, err)

	stats, err := f.businesses.Stats(ctx, "b1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Saves)
	assert.EqualValues(t, 1, stats.Claims)
	assert.EqualValues(t, testCoins, stats.CoinsAwarded)
	assert.Equal(t, "33.3", stats.ClaimRate.String())

	_, err = f.businesses.Stats(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClaimRate(t *testing.T) {
	assert.Equal(t, "0", ClaimRate(0, 0).String())
	assert.Equal(t, "50", ClaimRate(1, 2).String())
	assert.Equal(t, "66.7", ClaimRate(2, 3).String())
}

func TestUpsertBusinessRequiresIDAndName(t *testing.T) {
	f := newFixture(t)
	err := f.businesses.Upsert(context.Background(), domain.Business{ID: "b1"})
	assert.ErrorIs(t, err, domain.ErrInvalidBusiness)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, created, err := f.users.EnsureUser(ctx, "tg:42", "Ann", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, u.CoinBalance)

	_, created, err = f.users.EnsureUser(ctx, "tg:42", "Ann", "")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.users.Profile(ctx, "tg:43")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestBusinessListIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	f.businesses.now = func() time.Time { return now }

	list, err := f.businesses.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Upserts through the service drop the cached list.
	require.NoError(t, f.businesses.Upsert(ctx, domain.Business{ID: "b1", Name: "Bean There"}))
	list, err = f.businesses.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Writes from elsewhere show up once the entry expires.
	require.NoError(t, f.store.UpsertBusiness(ctx, domain.Business{ID: "b2", Name: "Crumbs", UpdatedAt: now}))
	list, err = f.businesses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	now = now.Add(2 * time.Minute)
	list, err = f.businesses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list[0].Name = "mutated"
	again, err := f.businesses.List(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].Name)
}
