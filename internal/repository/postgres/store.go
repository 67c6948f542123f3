// Package postgres implements the ledger store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/repository"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type Store struct {
	*Queries
	pool *pgxpool.Pool
}

var _ ledger.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{Queries: &Queries{db: pool}, pool: pool}
}

// Open connects to databaseURL, applies migrations and returns the store.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	migrations, err := repository.Migrations(repository.DialectPostgres)
	if err != nil {
		return nil, err
	}
	if err := repository.RunMigrations(databaseURL, migrations); err != nil {
		return nil, err
	}
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) WithinTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const userColumns = `id, display_name, photo_ref, coin_balance, referral_count, saved_offer_count, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.DisplayName, &u.PhotoRef, &u.CoinBalance, &u.ReferralCount, &u.SavedOfferCount, &u.CreatedAt)
	return u, err
}

func (q *Queries) EnsureUser(ctx context.Context, u domain.User) (domain.User, bool, error) {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	tag, err := q.db.Exec(ctx,
		`INSERT INTO users (id, display_name, photo_ref, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		u.ID, u.DisplayName, u.PhotoRef, createdAt.UTC(),
	)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("insert user: %w", err)
	}
	user, err := q.GetUser(ctx, u.ID)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, tag.RowsAffected() == 1, nil
}

func (q *Queries) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

const businessColumns = `id, name, description, discount_text, category, location, valid_until, updated_at`

func scanBusiness(row pgx.Row) (domain.Business, error) {
	var b domain.Business
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.DiscountText, &b.Category, &b.Location, &b.ValidUntil, &b.UpdatedAt)
	return b, err
}

func (q *Queries) UpsertBusiness(ctx context.Context, b domain.Business) error {
	updatedAt := b.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO businesses (`+businessColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   discount_text = EXCLUDED.discount_text,
		   category = EXCLUDED.category,
		   location = EXCLUDED.location,
		   valid_until = EXCLUDED.valid_until,
		   updated_at = EXCLUDED.updated_at`,
		b.ID, b.Name, b.Description, b.DiscountText, b.Category, b.Location, b.ValidUntil, updatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert business: %w", err)
	}
	return nil
}

func (q *Queries) GetBusiness(ctx context.Context, id string) (domain.Business, error) {
	b, err := scanBusiness(q.db.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Business{}, domain.ErrNotFound
		}
		return domain.Business{}, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}

func (q *Queries) ListBusinesses(ctx context.Context) ([]domain.Business, error) {
	rows, err := q.db.Query(ctx, `SELECT `+businessColumns+` FROM businesses ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()

	var out []domain.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) BusinessStats(ctx context.Context, businessID string) (domain.BusinessStats, error) {
	if _, err := q.GetBusiness(ctx, businessID); err != nil {
		return domain.BusinessStats{}, err
	}
	stats := domain.BusinessStats{BusinessID: businessID}
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(saved_count), 0), COALESCE(SUM(view_count), 0)
		 FROM recommendations WHERE business_id = $1`,
		businessID,
	).Scan(&stats.Recommendations, &stats.Saves, &stats.Views)
	if err != nil {
		return domain.BusinessStats{}, fmt.Errorf("count recommendations: %w", err)
	}
	err = q.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(ra.coins), 0)
		 FROM saved_offers so
		 JOIN recommendations r ON r.id = so.recommendation_id
		 LEFT JOIN referral_awards ra ON ra.saved_offer_id = so.id
		 WHERE r.business_id = $1 AND so.claimed`,
		businessID,
	).Scan(&stats.Claims, &stats.CoinsAwarded)
	if err != nil {
		return domain.BusinessStats{}, fmt.Errorf("count claims: %w", err)
	}
	return stats, nil
}

const recommendationColumns = `id, business_id, creator_id, text, image_ref, saved_count, view_count, created_at`

func scanRecommendation(row pgx.Row) (domain.Recommendation, error) {
	var r domain.Recommendation
	err := row.Scan(&r.ID, &r.BusinessID, &r.CreatorID, &r.Text, &r.ImageRef, &r.SavedCount, &r.ViewCount, &r.CreatedAt)
	return r, err
}

func (q *Queries) CreateRecommendation(ctx context.Context, r domain.Recommendation) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO recommendations (id, business_id, creator_id, text, image_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.BusinessID, r.CreatorID, r.Text, r.ImageRef, r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

func (q *Queries) GetRecommendation(ctx context.Context, id string) (domain.Recommendation, error) {
	r, err := scanRecommendation(q.db.QueryRow(ctx, `SELECT `+recommendationColumns+` FROM recommendations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recommendation{}, domain.ErrNotFound
		}
		return domain.Recommendation{}, fmt.Errorf("get recommendation: %w", err)
	}
	return r, nil
}

func (q *Queries) ListRecommendations(ctx context.Context, limit int) ([]domain.Recommendation, error) {
	return q.listRecommendations(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations ORDER BY created_at DESC, id LIMIT $1`,
		limit,
	)
}

func (q *Queries) ListRecommendationsByCreator(ctx context.Context, creatorID string, limit int) ([]domain.Recommendation, error) {
	return q.listRecommendations(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE creator_id = $1 ORDER BY created_at DESC, id LIMIT $2`,
		creatorID, limit,
	)
}

func (q *Queries) listRecommendations(ctx context.Context, sql string, args ...any) ([]domain.Recommendation, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []domain.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const savedOfferColumns = `id, user_id, recommendation_id, saved, claimed, saved_at, claimed_at`

func scanSavedOffer(row pgx.Row) (domain.SavedOffer, error) {
	var o domain.SavedOffer
	err := row.Scan(&o.ID, &o.UserID, &o.RecommendationID, &o.Saved, &o.Claimed, &o.SavedAt, &o.ClaimedAt)
	return o, err
}

func (q *Queries) CreateSavedOffer(ctx context.Context, o domain.SavedOffer) (domain.SavedOffer, bool, error) {
	created, err := scanSavedOffer(q.db.QueryRow(ctx,
		`INSERT INTO saved_offers (id, user_id, recommendation_id, saved, claimed, saved_at)
		 VALUES ($1, $2, $3, true, false, $4)
		 ON CONFLICT (user_id, recommendation_id) WHERE saved DO NOTHING
		 RETURNING `+savedOfferColumns,
		o.ID, o.UserID, o.RecommendationID, o.SavedAt.UTC(),
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.SavedOffer{}, false, fmt.Errorf("insert saved offer: %w", err)
	}

	existing, err := scanSavedOffer(q.db.QueryRow(ctx,
		`SELECT `+savedOfferColumns+` FROM saved_offers
		 WHERE user_id = $1 AND recommendation_id = $2 AND saved`,
		o.UserID, o.RecommendationID,
	))
	if err != nil {
		return domain.SavedOffer{}, false, fmt.Errorf("get existing saved offer: %w", err)
	}
	return existing, false, nil
}

func (q *Queries) GetSavedOffer(ctx context.Context, id string) (domain.SavedOffer, error) {
	o, err := scanSavedOffer(q.db.QueryRow(ctx, `SELECT `+savedOfferColumns+` FROM saved_offers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SavedOffer{}, domain.ErrNotFound
		}
		return domain.SavedOffer{}, fmt.Errorf("get saved offer: %w", err)
	}
	return o, nil
}

func (q *Queries) ListSavedOffers(ctx context.Context, userID string) ([]domain.SavedOfferDetail, error) {
	rows, err := q.db.Query(ctx,
		`SELECT so.id, so.user_id, so.recommendation_id, so.saved, so.claimed, so.saved_at, so.claimed_at,
		        r.id, r.business_id, r.creator_id, r.text, r.image_ref, r.saved_count, r.view_count, r.created_at,
		        b.name, b.discount_text
		 FROM saved_offers so
		 JOIN recommendations r ON r.id = so.recommendation_id
		 JOIN businesses b ON b.id = r.business_id
		 WHERE so.user_id = $1 AND so.saved
		 ORDER BY so.saved_at DESC, so.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list saved offers: %w", err)
	}
	defer rows.Close()

	var out []domain.SavedOfferDetail
	for rows.Next() {
		var d domain.SavedOfferDetail
		r := &d.Recommendation
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.RecommendationID, &d.Saved, &d.Claimed, &d.SavedAt, &d.ClaimedAt,
			&r.ID, &r.BusinessID, &r.CreatorID, &r.Text, &r.ImageRef, &r.SavedCount, &r.ViewCount, &r.CreatedAt,
			&d.BusinessName, &d.DiscountText,
		); err != nil {
			return nil, fmt.Errorf("scan saved offer: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) CountSavedOffers(ctx context.Context, recommendationID string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM saved_offers WHERE recommendation_id = $1 AND saved`,
		recommendationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count saved offers: %w", err)
	}
	return n, nil
}

func (q *Queries) Increment(ctx context.Context, c ledger.Counter, id string, delta int64) (int64, error) {
	table, column, ok := c.Target()
	if !ok {
		return 0, fmt.Errorf("increment: unknown counter %d", c)
	}
	var value int64
	err := q.db.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET %s = %s + $2 WHERE id = $1 RETURNING %s`, table, column, column, column),
		id, delta,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("increment %s: %w", c, err)
	}
	return value, nil
}

func (q *Queries) ClaimSavedOffer(ctx context.Context, id string, claimedAt time.Time) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE saved_offers SET claimed = true, claimed_at = $2
		 WHERE id = $1 AND claimed = false`,
		id, claimedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("claim saved offer: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM saved_offers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check saved offer: %w", err)
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (q *Queries) InsertReferralAward(ctx context.Context, award domain.ReferralAward) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`INSERT INTO referral_awards (saved_offer_id, user_id, coins, awarded_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (saved_offer_id) DO NOTHING`,
		award.SavedOfferID, award.UserID, award.Coins, award.AwardedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert referral award: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (q *Queries) InsertCoinTransaction(ctx context.Context, t domain.CoinTransaction) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO coin_transactions (id, user_id, amount, kind, reference, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.Amount, string(t.Kind), t.Reference, t.Description, t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert coin transaction: %w", err)
	}
	return nil
}

func (q *Queries) ListCoinTransactions(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, user_id, amount, kind, reference, description, created_at
		 FROM coin_transactions WHERE user_id = $1
		 ORDER BY created_at DESC, id LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list coin transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.CoinTransaction
	for rows.Next() {
		var t domain.CoinTransaction
		var kind string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &kind, &t.Reference, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan coin transaction: %w", err)
		}
		t.Kind = domain.TxKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) ListUnawardedClaims(ctx context.Context, limit int) ([]domain.SavedOffer, error) {
	rows, err := q.db.Query(ctx,
		`SELECT so.id, so.user_id, so.recommendation_id, so.saved, so.claimed, so.saved_at, so.claimed_at
		 FROM saved_offers so
		 LEFT JOIN referral_awards ra ON ra.saved_offer_id = so.id
		 WHERE so.claimed AND ra.saved_offer_id IS NULL
		 ORDER BY so.claimed_at, so.id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unawarded claims: %w", err)
	}
	defer rows.Close()

	var out []domain.SavedOffer
	for rows.Next() {
		o, err := scanSavedOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
