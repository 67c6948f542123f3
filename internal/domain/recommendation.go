package domain

import "time"

type Recommendation struct {
	ID         string
	BusinessID string
	CreatorID  string
	Text       string
	ImageRef   string
	SavedCount int64
	ViewCount  int64
	CreatedAt  time.Time
}

// Aggregate is the read-only projection of a recommendation shown next to it.
type Aggregate struct {
	RecommendationID string
	SavedCount       int64
}
