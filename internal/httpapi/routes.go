package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/set-night/shareit/internal/domain"
)

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return false
	}
	return true
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

func (h *Handler) createRecommendation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessID string `json:"businessId"`
		Text       string `json:"text"`
		ImageRef   string `json:"imageRef"`
	}
	if !decode(w, r, &req) {
		return
	}

	id, err := h.recommendations.Create(r.Context(), req.BusinessID, UserID(r.Context()), req.Text, req.ImageRef)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.recommendations.ListRecent(r.Context(), queryLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": toRecommendations(recs)})
}

func (h *Handler) getRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recommendations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecommendation(*rec))
}

func (h *Handler) getAggregate(w http.ResponseWriter, r *http.Request) {
	agg, err := h.recommendations.Aggregate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendationId": agg.RecommendationID, "savedCount": agg.SavedCount})
}

func (h *Handler) recordView(w http.ResponseWriter, r *http.Request) {
	views, err := h.recommendations.RecordView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"viewCount": views})
}

func (h *Handler) saveOffer(w http.ResponseWriter, r *http.Request) {
	id, err := h.saves.Save(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"savedOfferId": id})
}

// claimOffer redeems one of the caller's own saved offers. The referrer
// defaults to the recommendation's creator; an explicit referrerId must match.
func (h *Handler) claimOffer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReferrerID string `json:"referrerId"`
	}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	offer, err := h.saves.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if offer.UserID != UserID(ctx) {
		writeProblem(w, http.StatusNotFound, "not_found", domain.ErrNotFound.Error())
		return
	}
	if req.ReferrerID == "" {
		rec, err := h.recommendations.Get(ctx, offer.RecommendationID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		req.ReferrerID = rec.CreatorID
	}

	res, err := h.rewards.Claim(ctx, offer.ID, req.ReferrerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"savedOfferId":     res.SavedOfferID,
		"coinsAwarded":     res.CoinsAwarded,
		"newReferralCount": res.NewReferralCount,
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Profile(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (h *Handler) mySavedOffers(w http.ResponseWriter, r *http.Request) {
	saved, err := h.saves.ListSaved(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"savedOffers": toSavedOffers(saved)})
}

func (h *Handler) myTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.users.Transactions(r.Context(), UserID(r.Context()), queryLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactions(txs)})
}

func (h *Handler) userRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.recommendations.ListByCreator(r.Context(), chi.URLParam(r, "id"), queryLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": toRecommendations(recs)})
}

func (h *Handler) listBusinesses(w http.ResponseWriter, r *http.Request) {
	list, err := h.businesses.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]businessJSON, 0, len(list))
	for _, b := range list {
		out = append(out, toBusiness(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"businesses": out})
}

func (h *Handler) getBusiness(w http.ResponseWriter, r *http.Request) {
	b, err := h.businesses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBusiness(*b))
}

func (h *Handler) businessStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.businesses.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsJSON{
		BusinessID:      s.BusinessID,
		Recommendations: s.Recommendations,
		Saves:           s.Saves,
		Views:           s.Views,
		Claims:          s.Claims,
		CoinsAwarded:    s.CoinsAwarded,
		ClaimRate:       s.ClaimRate.String(),
	})
}
