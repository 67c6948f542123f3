// Package ledger defines the storage contract the referral services rely on.
//
// Every numeric field is changed through Increment, which must be a single
// atomic statement at the store, and the one-time claim flag is changed
// through ClaimSavedOffer, a compare-and-set. Implementations live under
// internal/repository.
package ledger

import (
	"context"
	"time"

	"github.com/set-night/shareit/internal/domain"
)

// Counter names a numeric field that may only change through Increment.
type Counter int

const (
	RecommendationSaved Counter = iota + 1
	RecommendationViews
	UserSavedOffers
	UserCoins
	UserReferrals
)

var counterTargets = map[Counter]struct{ table, column string }{
	RecommendationSaved: {"recommendations", "saved_count"},
	RecommendationViews: {"recommendations", "view_count"},
	UserSavedOffers:     {"users", "saved_offer_count"},
	UserCoins:           {"users", "coin_balance"},
	UserReferrals:       {"users", "referral_count"},
}

// Target returns the table and column backing the counter.
func (c Counter) Target() (table, column string, ok bool) {
	t, ok := counterTargets[c]
	return t.table, t.column, ok
}

func (c Counter) String() string {
	table, column, ok := c.Target()
	if !ok {
		return "unknown"
	}
	return table + "." + column
}

// Queries is the set of operations available both on the store and inside a
// transaction started by Store.WithinTx.
type Queries interface {
	// EnsureUser inserts u unless a user with the same id exists and returns
	// the stored row. created reports whether the insert happened.
	EnsureUser(ctx context.Context, u domain.User) (user domain.User, created bool, err error)
	GetUser(ctx context.Context, id string) (domain.User, error)

	UpsertBusiness(ctx context.Context, b domain.Business) error
	GetBusiness(ctx context.Context, id string) (domain.Business, error)
	ListBusinesses(ctx context.Context) ([]domain.Business, error)
	// BusinessStats returns raw counts; ClaimRate is left for the caller.
	BusinessStats(ctx context.Context, businessID string) (domain.BusinessStats, error)

	CreateRecommendation(ctx context.Context, r domain.Recommendation) error
	GetRecommendation(ctx context.Context, id string) (domain.Recommendation, error)
	ListRecommendations(ctx context.Context, limit int) ([]domain.Recommendation, error)
	ListRecommendationsByCreator(ctx context.Context, creatorID string, limit int) ([]domain.Recommendation, error)

	// CreateSavedOffer inserts o unless the user already has a saved offer for
	// the same recommendation, in which case the existing row is returned and
	// created is false.
	CreateSavedOffer(ctx context.Context, o domain.SavedOffer) (offer domain.SavedOffer, created bool, err error)
	GetSavedOffer(ctx context.Context, id string) (domain.SavedOffer, error)
	ListSavedOffers(ctx context.Context, userID string) ([]domain.SavedOfferDetail, error)
	CountSavedOffers(ctx context.Context, recommendationID string) (int64, error)

	// Increment adds delta to the counter of entity id and returns the new
	// value. It fails with domain.ErrNotFound if the entity does not exist.
	Increment(ctx context.Context, c Counter, id string, delta int64) (int64, error)
	// ClaimSavedOffer flips claimed from false to true. It returns false when
	// the offer was already claimed and domain.ErrNotFound when it does not
	// exist.
	ClaimSavedOffer(ctx context.Context, id string, claimedAt time.Time) (bool, error)

	// InsertReferralAward records award unless one already exists for the
	// same saved offer; inserted reports whether this call created it.
	InsertReferralAward(ctx context.Context, award domain.ReferralAward) (inserted bool, err error)
	InsertCoinTransaction(ctx context.Context, t domain.CoinTransaction) error
	ListCoinTransactions(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error)
	// ListUnawardedClaims returns claimed offers that have no referral award
	// yet, oldest claim first.
	ListUnawardedClaims(ctx context.Context, limit int) ([]domain.SavedOffer, error)
}

// Store is a durable ledger.
type Store interface {
	Queries

	// WithinTx runs fn in a single transaction. The transaction is rolled back
	// when fn returns an error.
	WithinTx(ctx context.Context, fn func(q Queries) error) error

	Close() error
}
