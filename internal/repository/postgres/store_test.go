package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/ledger/ledgertest"
	"github.com/set-night/shareit/internal/repository/postgres"
)

func TestStore(t *testing.T) {
	url := os.Getenv("SHAREIT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SHAREIT_TEST_DATABASE_URL not set")
	}

	ledgertest.Run(t, func(t *testing.T) ledger.Store {
		ctx := context.Background()
		s, err := postgres.Open(ctx, url)
		require.NoError(t, err)
		require.NoError(t, s.Truncate(ctx))
		return s
	})
}
