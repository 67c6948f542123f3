package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/set-night/shareit/internal/domain"
)

type problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error problem `json:"error"`
}

var errorStatus = []struct {
	err    error
	status int
	code   string
	msg    string
}{
	{domain.ErrAlreadyClaimed, http.StatusConflict, "already_claimed", "this offer was already redeemed"},
	{domain.ErrUnknownBusiness, http.StatusUnprocessableEntity, "unknown_business", ""},
	{domain.ErrUnknownRecommendation, http.StatusNotFound, "unknown_recommendation", ""},
	{domain.ErrInvalidText, http.StatusBadRequest, "invalid_text", ""},
	{domain.ErrInvalidImageRef, http.StatusBadRequest, "invalid_image_ref", ""},
	{domain.ErrInvalidReferrer, http.StatusUnprocessableEntity, "invalid_referrer", ""},
	{domain.ErrInvalidBusiness, http.StatusBadRequest, "invalid_business", ""},
	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found", ""},
	{domain.ErrNotFound, http.StatusNotFound, "not_found", ""},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: problem{Code: code, Message: message}})
}

// writeError maps service errors to responses. Anything unrecognised is
// reported as temporarily unavailable so clients retry.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			msg := e.msg
			if msg == "" {
				msg = e.err.Error()
			}
			writeProblem(w, e.status, e.code, msg)
			return
		}
	}
	h.log(r).Error("request failed", "error", err)
	w.Header().Set("Retry-After", "1")
	writeProblem(w, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable, please retry")
}
