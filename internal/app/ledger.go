// Package app assembles the ledger, services and transports shared by the binaries.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/repository/postgres"
	"github.com/set-night/shareit/internal/repository/sqlite"
)

// Ledger is a store that can also report whether its database is reachable.
type Ledger interface {
	ledger.Store
	Ping(ctx context.Context) error
}

// OpenLedger picks the store implementation from the URL scheme:
// postgres:// or postgresql:// for PostgreSQL, sqlite://<path> for a local file.
func OpenLedger(ctx context.Context, databaseURL string) (Ledger, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		s, err := postgres.Open(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		return s, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("open ledger: sqlite url has no path")
		}
		s, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("open ledger: unsupported database url scheme")
}
