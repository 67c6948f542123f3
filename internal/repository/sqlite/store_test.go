package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/ledger/ledgertest"
	"github.com/set-night/shareit/internal/repository/sqlite"
)

func openTemp(t *testing.T) ledger.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	ledgertest.Run(t, openTemp)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	_, _, err = s.EnsureUser(context.Background(), domain.User{ID: "u1"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlite.Open(path)
	require.NoError(t, err)
	defer s.Close()

	u, err := s.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET coin_balance = coin_balance + ? WHERE id = ? RETURNING coin_balance`)).
		WithArgs(int64(5), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"coin_balance"}).AddRow(5))
	mock.ExpectRollback()

	boom := errors.New("boom")
	s := sqlite.New(db)
	err = s.WithinTx(context.Background(), func(q ledger.Queries) error {
		v, err := q.Increment(context.Background(), ledger.UserCoins, "u1", 5)
		require.NoError(t, err)
		assert.EqualValues(t, 5, v)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDistinguishesMissingFromClaimed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE saved_offers SET claimed = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("so-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := sqlite.New(db).ClaimSavedOffer(context.Background(), "so-1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
