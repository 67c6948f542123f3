package postgres

import (
	"context"
	"fmt"
)

// Truncate empties every ledger table.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`TRUNCATE coin_transactions, referral_awards, saved_offers, recommendations, businesses, users`)
	if err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}
