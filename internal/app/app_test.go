package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/metrics"
)

func TestOpenLedgerSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := OpenLedger(ctx, "sqlite://"+filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Ping(ctx))

	cfg := &config.Config{RewardCoins: 7, StoreRetryAttempts: 2}
	svc := NewServices(cfg, store, metrics.New())
	assert.EqualValues(t, 7, svc.Rewards.Coins())

	require.NoError(t, svc.Businesses.Upsert(ctx, domain.Business{ID: "b1", Name: "Bean There"}))
	list, err := svc.Businesses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOpenLedgerRejectsUnknownScheme(t *testing.T) {
	for _, url := range []string{"mysql://localhost/db", "sqlite://", ""} {
		_, err := OpenLedger(context.Background(), url)
		assert.Error(t, err, url)
	}
}
