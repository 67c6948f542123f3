package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Business struct {
	ID           string
	Name         string
	Description  string
	DiscountText string
	Category     string
	Location     string
	ValidUntil   *time.Time
	UpdatedAt    time.Time
}

// BusinessStats aggregates referral activity for one business.
type BusinessStats struct {
	BusinessID      string
	Recommendations int64
	Saves           int64
	Views           int64
	Claims          int64
	CoinsAwarded    int64
	// ClaimRate is claims per hundred saves, rounded to one decimal place.
	ClaimRate decimal.Decimal
}
