package domain

import "time"

type TxKind string

const (
	TxKindReferralReward TxKind = "referral_reward"
)

// ReferralAward records that the reward for one claimed saved offer has been
// credited. There is at most one per saved offer.
type ReferralAward struct {
	SavedOfferID string
	UserID       string
	Coins        int64
	AwardedAt    time.Time
}

type ClaimResult struct {
	SavedOfferID     string
	CoinsAwarded     int64
	NewReferralCount int64
}

type CoinTransaction struct {
	ID          string
	UserID      string
	Amount      int64
	Kind        TxKind
	Reference   string
	Description string
	CreatedAt   time.Time
}
