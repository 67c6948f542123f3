// Package sqlite implements the ledger store on an embedded SQLite database.
//
// The database is opened with a single connection, so every statement and
// transaction is serialized. Timestamps are stored as unix milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/repository"
)

const pragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type Queries struct {
	db dbtx
}

type Store struct {
	*Queries
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{Queries: &Queries{db: db}, db: db}
}

// Open applies migrations to the database file at path and opens it.
func Open(path string) (*Store, error) {
	migrations, err := repository.Migrations(repository.DialectSQLite)
	if err != nil {
		return nil, err
	}
	if err := repository.RunMigrations("sqlite://"+path+"?"+pragmas, migrations); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+path+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return New(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) WithinTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

const userColumns = `id, display_name, photo_ref, coin_balance, referral_count, saved_offer_count, created_at`

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.DisplayName, &u.PhotoRef, &u.CoinBalance, &u.ReferralCount, &u.SavedOfferCount, &createdAt)
	u.CreatedAt = fromMillis(createdAt)
	return u, err
}

func (q *Queries) EnsureUser(ctx context.Context, u domain.User) (domain.User, bool, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, photo_ref, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		u.ID, u.DisplayName, u.PhotoRef, millis(u.CreatedAt),
	)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.User{}, false, fmt.Errorf("insert user: %w", err)
	}
	user, err := q.GetUser(ctx, u.ID)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, n == 1, nil
}

func (q *Queries) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

const businessColumns = `id, name, description, discount_text, category, location, valid_until, updated_at`

func scanBusiness(row rowScanner) (domain.Business, error) {
	var b domain.Business
	var validUntil sql.NullInt64
	var updatedAt int64
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.DiscountText, &b.Category, &b.Location, &validUntil, &updatedAt)
	b.ValidUntil = fromNullMillis(validUntil)
	b.UpdatedAt = fromMillis(updatedAt)
	return b, err
}

func (q *Queries) UpsertBusiness(ctx context.Context, b domain.Business) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO businesses (`+businessColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   discount_text = excluded.discount_text,
		   category = excluded.category,
		   location = excluded.location,
		   valid_until = excluded.valid_until,
		   updated_at = excluded.updated_at`,
		b.ID, b.Name, b.Description, b.DiscountText, b.Category, b.Location, nullMillis(b.ValidUntil), millis(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert business: %w", err)
	}
	return nil
}

func (q *Queries) GetBusiness(ctx context.Context, id string) (domain.Business, error) {
	b, err := scanBusiness(q.db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Business{}, domain.ErrNotFound
		}
		return domain.Business{}, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}

func (q *Queries) ListBusinesses(ctx context.Context) ([]domain.Business, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+businessColumns+` FROM businesses ORDER BY name, id`)
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
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(saved_count), 0), COALESCE(SUM(view_count), 0)
		 FROM recommendations WHERE business_id = ?`,
		businessID,
	).Scan(&stats.Recommendations, &stats.Saves, &stats.Views)
	if err != nil {
		return domain.BusinessStats{}, fmt.Errorf("count recommendations: %w", err)
	}
	err = q.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(ra.coins), 0)
		 FROM saved_offers so
		 JOIN recommendations r ON r.id = so.recommendation_id
		 LEFT JOIN referral_awards ra ON ra.saved_offer_id = so.id
		 WHERE r.business_id = ? AND so.claimed = 1`,
		businessID,
	).Scan(&stats.Claims, &stats.CoinsAwarded)
	if err != nil {
		return domain.BusinessStats{}, fmt.Errorf("count claims: %w", err)
	}
	return stats, nil
}

const recommendationColumns = `id, business_id, creator_id, text, image_ref, saved_count, view_count, created_at`

func scanRecommendation(row rowScanner) (domain.Recommendation, error) {
	var r domain.Recommendation
	var createdAt int64
	err := row.Scan(&r.ID, &r.BusinessID, &r.CreatorID, &r.Text, &r.ImageRef, &r.SavedCount, &r.ViewCount, &createdAt)
	r.CreatedAt = fromMillis(createdAt)
	return r, err
}

func (q *Queries) CreateRecommendation(ctx context.Context, r domain.Recommendation) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO recommendations (id, business_id, creator_id, text, image_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.BusinessID, r.CreatorID, r.Text, r.ImageRef, millis(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

func (q *Queries) GetRecommendation(ctx context.Context, id string) (domain.Recommendation, error) {
	r, err := scanRecommendation(q.db.QueryRowContext(ctx, `SELECT `+recommendationColumns+` FROM recommendations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Recommendation{}, domain.ErrNotFound
		}
		return domain.Recommendation{}, fmt.Errorf("get recommendation: %w", err)
	}
	return r, nil
}

func (q *Queries) ListRecommendations(ctx context.Context, limit int) ([]domain.Recommendation, error) {
	return q.listRecommendations(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
}

func (q *Queries) ListRecommendationsByCreator(ctx context.Context, creatorID string, limit int) ([]domain.Recommendation, error) {
	return q.listRecommendations(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE creator_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		creatorID, limit,
	)
}

func (q *Queries) listRecommendations(ctx context.Context, query string, args ...any) ([]domain.Recommendation, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
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

func scanSavedOffer(row rowScanner) (domain.SavedOffer, error) {
	var o domain.SavedOffer
	var savedAt int64
	var claimedAt sql.NullInt64
	err := row.Scan(&o.ID, &o.UserID, &o.RecommendationID, &o.Saved, &o.Claimed, &savedAt, &claimedAt)
	o.SavedAt = fromMillis(savedAt)
	o.ClaimedAt = fromNullMillis(claimedAt)
	return o, err
}

func (q *Queries) CreateSavedOffer(ctx context.Context, o domain.SavedOffer) (domain.SavedOffer, bool, error) {
	created, err := scanSavedOffer(q.db.QueryRowContext(ctx,
		`INSERT INTO saved_offers (id, user_id, recommendation_id, saved, claimed, saved_at)
		 VALUES (?, ?, ?, 1, 0, ?)
		 ON CONFLICT (user_id, recommendation_id) WHERE saved = 1 DO NOTHING
		 RETURNING `+savedOfferColumns,
		o.ID, o.UserID, o.RecommendationID, millis(o.SavedAt),
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.SavedOffer{}, false, fmt.Errorf("insert saved offer: %w", err)
	}

	existing, err := scanSavedOffer(q.db.QueryRowContext(ctx,
		`SELECT `+savedOfferColumns+` FROM saved_offers
		 WHERE user_id = ? AND recommendation_id = ? AND saved = 1`,
		o.UserID, o.RecommendationID,
	))
	if err != nil {
		return domain.SavedOffer{}, false, fmt.Errorf("get existing saved offer: %w", err)
	}
	return existing, false, nil
}

func (q *Queries) GetSavedOffer(ctx context.Context, id string) (domain.SavedOffer, error) {
	o, err := scanSavedOffer(q.db.QueryRowContext(ctx, `SELECT `+savedOfferColumns+` FROM saved_offers WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SavedOffer{}, domain.ErrNotFound
		}
		return domain.SavedOffer{}, fmt.Errorf("get saved offer: %w", err)
	}
	return o, nil
}

func (q *Queries) ListSavedOffers(ctx context.Context, userID string) ([]domain.SavedOfferDetail, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT so.id, so.user_id, so.recommendation_id, so.saved, so.claimed, so.saved_at, so.claimed_at,
		        r.id, r.business_id, r.creator_id, r.text, r.image_ref, r.saved_count, r.view_count, r.created_at,
		        b.name, b.discount_text
		 FROM saved_offers so
		 JOIN recommendations r ON r.id = so.recommendation_id
		 JOIN businesses b ON b.id = r.business_id
		 WHERE so.user_id = ? AND so.saved = 1
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
		var savedAt, recCreatedAt int64
		var claimedAt sql.NullInt64
		r := &d.Recommendation
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.RecommendationID, &d.Saved, &d.Claimed, &savedAt, &claimedAt,
			&r.ID, &r.BusinessID, &r.CreatorID, &r.Text, &r.ImageRef, &r.SavedCount, &r.ViewCount, &recCreatedAt,
			&d.BusinessName, &d.DiscountText,
		); err != nil {
			return nil, fmt.Errorf("scan saved offer: %w", err)
		}
		d.SavedAt = fromMillis(savedAt)
		d.ClaimedAt = fromNullMillis(claimedAt)
		r.CreatedAt = fromMillis(recCreatedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) CountSavedOffers(ctx context.Context, recommendationID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM saved_offers WHERE recommendation_id = ? AND saved = 1`,
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
	err := q.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s = %s + ? WHERE id = ? RETURNING %s`, table, column, column, column),
		delta, id,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("increment %s: %w", c, err)
	}
	return value, nil
}

func (q *Queries) ClaimSavedOffer(ctx context.Context, id string, claimedAt time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE saved_offers SET claimed = 1, claimed_at = ?
		 WHERE id = ? AND claimed = 0`,
		millis(claimedAt), id,
	)
	if err != nil {
		return false, fmt.Errorf("claim saved offer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim saved offer: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists bool
	if err := q.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM saved_offers WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check saved offer: %w", err)
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (q *Queries) InsertReferralAward(ctx context.Context, award domain.ReferralAward) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO referral_awards (saved_offer_id, user_id, coins, awarded_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (saved_offer_id) DO NOTHING`,
		award.SavedOfferID, award.UserID, award.Coins, millis(award.AwardedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert referral award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert referral award: %w", err)
	}
	return n == 1, nil
}

func (q *Queries) InsertCoinTransaction(ctx context.Context, t domain.CoinTransaction) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO coin_transactions (id, user_id, amount, kind, reference, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Amount, string(t.Kind), t.Reference, t.Description, millis(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert coin transaction: %w", err)
	}
	return nil
}

func (q *Queries) ListCoinTransactions(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, amount, kind, reference, description, created_at
		 FROM coin_transactions WHERE user_id = ?
		 ORDER BY created_at DESC, id LIMIT ?`,
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
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &kind, &t.Reference, &t.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan coin transaction: %w", err)
		}
		t.Kind = domain.TxKind(kind)
		t.CreatedAt = fromMillis(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) ListUnawardedClaims(ctx context.Context, limit int) ([]domain.SavedOffer, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT so.id, so.user_id, so.recommendation_id, so.saved, so.claimed, so.saved_at, so.claimed_at
		 FROM saved_offers so
		 LEFT JOIN referral_awards ra ON ra.saved_offer_id = so.id
		 WHERE so.claimed = 1 AND ra.saved_offer_id IS NULL
		 ORDER BY so.claimed_at, so.id
		 LIMIT ?`,
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
