package domain

import "time"

type SavedOffer struct {
	ID               string
	UserID           string
	RecommendationID string
	Saved            bool
	Claimed          bool
	SavedAt          time.Time
	ClaimedAt        *time.Time
}

// SavedOfferDetail is a saved offer joined with what the user bookmarked.
type SavedOfferDetail struct {
	SavedOffer
	Recommendation Recommendation
	BusinessName   string
	DiscountText   string
}
