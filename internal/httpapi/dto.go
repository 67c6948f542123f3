package httpapi

import (
	"time"

	"github.com/set-night/shareit/internal/domain"
)

type recommendationJSON struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"businessId"`
	CreatorID  string    `json:"creatorId"`
	Text       string    `json:"text"`
	ImageRef   string    `json:"imageRef"`
	SavedCount int64     `json:"savedCount"`
	ViewCount  int64     `json:"viewCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toRecommendation(r domain.Recommendation) recommendationJSON {
	return recommendationJSON{
		ID:         r.ID,
		BusinessID: r.BusinessID,
		CreatorID:  r.CreatorID,
		Text:       r.Text,
		ImageRef:   r.ImageRef,
		SavedCount: r.SavedCount,
		ViewCount:  r.ViewCount,
		CreatedAt:  r.CreatedAt,
	}
}

func toRecommendations(in []domain.Recommendation) []recommendationJSON {
	out := make([]recommendationJSON, 0, len(in))
	for _, r := range in {
		out = append(out, toRecommendation(r))
	}
	return out
}

type userJSON struct {
	ID              string    `json:"id"`
	DisplayName     string    `json:"displayName"`
	PhotoRef        string    `json:"photoRef,omitempty"`
	CoinBalance     int64     `json:"coinBalance"`
	ReferralCount   int64     `json:"referralCount"`
	SavedOfferCount int64     `json:"savedOfferCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toUser(u *domain.User) userJSON {
	return userJSON{
		ID:              u.ID,
		DisplayName:     u.DisplayName,
		PhotoRef:        u.PhotoRef,
		CoinBalance:     u.CoinBalance,
		ReferralCount:   u.ReferralCount,
		SavedOfferCount: u.SavedOfferCount,
		CreatedAt:       u.CreatedAt,
	}
}

type savedOfferJSON struct {
	ID             string             `json:"id"`
	Claimed        bool               `json:"claimed"`
	SavedAt        time.Time          `json:"savedAt"`
	ClaimedAt      *time.Time         `json:"claimedAt,omitempty"`
	BusinessName   string             `json:"businessName"`
	DiscountText   string             `json:"discountText"`
	Recommendation recommendationJSON `json:"recommendation"`
}

func toSavedOffers(in []domain.SavedOfferDetail) []savedOfferJSON {
	out := make([]savedOfferJSON, 0, len(in))
	for _, d := range in {
		out = append(out, savedOfferJSON{
			ID:             d.ID,
			Claimed:        d.Claimed,
			SavedAt:        d.SavedAt,
			ClaimedAt:      d.ClaimedAt,
			BusinessName:   d.BusinessName,
			DiscountText:   d.DiscountText,
			Recommendation: toRecommendation(d.Recommendation),
		})
	}
	return out
}

type transactionJSON struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Kind        string    `json:"kind"`
	Reference   string    `json:"reference"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toTransactions(in []domain.CoinTransaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(in))
	for _, t := range in {
		out = append(out, transactionJSON{
			ID:          t.ID,
			Amount:      t.Amount,
			Kind:        string(t.Kind),
			Reference:   t.Reference,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	return out
}

type businessJSON struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	DiscountText string     `json:"discountText"`
	Category     string     `json:"category"`
	Location     string     `json:"location,omitempty"`
	ValidUntil   *time.Time `json:"validUntil,omitempty"`
}

func toBusiness(b domain.Business) businessJSON {
	return businessJSON{
		ID:           b.ID,
		Name:         b.Name,
		Description:  b.Description,
		DiscountText: b.DiscountText,
		Category:     b.Category,
		Location:     b.Location,
		ValidUntil:   b.ValidUntil,
	}
}

type statsJSON struct {
	BusinessID      string `json:"businessId"`
	Recommendations int64  `json:"recommendations"`
	Saves           int64  `json:"saves"`
	Views           int64  `json:"views"`
	Claims          int64  `json:"claims"`
	CoinsAwarded    int64  `json:"coinsAwarded"`
	ClaimRate       string `json:"claimRate"`
}
