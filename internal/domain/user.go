package domain

import "time"

type User struct {
	ID              string
	DisplayName     string
	PhotoRef        string
	CoinBalance     int64
	ReferralCount   int64
	SavedOfferCount int64
	CreatedAt       time.Time
}
