package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/metrics"
	"github.com/set-night/shareit/internal/objectstore"
	"github.com/set-night/shareit/internal/ratelimit"
	"github.com/set-night/shareit/internal/repository/sqlite"
	"github.com/set-night/shareit/internal/service"
)

const (
	testSecret = "test-secret"
	testIssuer = "https://id.shareit.test"
)

type apiFixture struct {
	srv        *httptest.Server
	businesses *service.BusinessService
}

func newAPI(t *testing.T, rps float64, burst int) *apiFixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := metrics.New()
	retry := service.NewRetrier(3, 5*time.Millisecond, m)
	businesses := service.NewBusinessService(store)
	h := New(Deps{
		Users:           service.NewUserService(store),
		Businesses:      businesses,
		Recommendations: service.NewRecommendationService(store, objectstore.NewPolicy(nil), m),
		Saves:           service.NewSavedOfferService(store, retry, m),
		Rewards:         service.NewRewardService(store, retry, m, 5),
		Verifier:        NewVerifier(testSecret, testIssuer),
		Limiter:         ratelimit.New(rps, burst),
		Metrics:         m,
	})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	require.NoError(t, businesses.Upsert(context.Background(), domain.Business{ID: "b1", Name: "Bean There", DiscountText: "10% off"}))
	return &apiFixture{srv: srv, businesses: businesses}
}

func token(t *testing.T, sub string) string {
	t.Helper()
	claims := tokenClaims{
		Name: sub + " name",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *apiFixture) do(t *testing.T, method, path, user string, body any) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		require.NoError(t, err)
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestReferralFlow(t *testing.T) {
	f := newAPI(t, 100, 100)

	status, body := f.do(t, http.MethodPost, "/v1/recommendations", "alice", map[string]string{
		"businessId": "b1",
		"text":       "Great coffee!",
		"imageRef":   "https://img.example.com/r1.jpg",
	})
	require.Equal(t, http.StatusCreated, status)
	r1 := body["id"].(string)

	status, body = f.do(t, http.MethodPost, "/v1/recommendations/"+r1+"/save", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	s1 := body["savedOfferId"].(string)

	status, body = f.do(t, http.MethodPost, "/v1/recommendations/"+r1+"/save", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, s1, body["savedOfferId"])

	status, body = f.do(t, http.MethodGet, "/v1/recommendations/"+r1+"/aggregate", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["savedCount"])

	status, body = f.do(t, http.MethodPost, "/v1/saved-offers/"+s1+"/claim", "bob", map[string]string{"referrerId": "carol"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_referrer", errorCode(body))

	status, body = f.do(t, http.MethodPost, "/v1/saved-offers/"+s1+"/claim", "carol", nil)
	assert.Equal(t, http.StatusNotFound, status, "only the saver can claim")

	status, body = f.do(t, http.MethodPost, "/v1/saved-offers/"+s1+"/claim", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 5, body["coinsAwarded"])
	assert.EqualValues(t, 1, body["newReferralCount"])

	status, body = f.do(t, http.MethodPost, "/v1/saved-offers/"+s1+"/claim", "bob", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_claimed", errorCode(body))

	status, body = f.do(t, http.MethodGet, "/v1/me", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 5, body["coinBalance"])
	assert.EqualValues(t, 1, body["referralCount"])

	status, body = f.do(t, http.MethodGet, "/v1/me/transactions", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["transactions"], 1)

	status, body = f.do(t, http.MethodGet, "/v1/me/saved-offers", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["savedOffers"], 1)

	status, body = f.do(t, http.MethodGet, "/v1/businesses/b1/stats", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "100", body["claimRate"])
}

func TestValidationErrors(t *testing.T) {
	f := newAPI(t, 100, 100)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown business", http.MethodPost, "/v1/recommendations", map[string]string{"businessId": "nope", "text": "hi", "imageRef": "https://x.example.com/a.jpg"}, http.StatusUnprocessableEntity, "unknown_business"},
		{"empty text", http.MethodPost, "/v1/recommendations", map[string]string{"businessId": "b1", "text": " ", "imageRef": "https://x.example.com/a.jpg"}, http.StatusBadRequest, "invalid_text"},
		{"bad image", http.MethodPost, "/v1/recommendations", map[string]string{"businessId": "b1", "text": "hi", "imageRef": "ftp://x/a.jpg"}, http.StatusBadRequest, "invalid_image_ref"},
		{"unknown recommendation", http.MethodPost, "/v1/recommendations/nope/save", nil, http.StatusNotFound, "unknown_recommendation"},
		{"unknown saved offer", http.MethodPost, "/v1/saved-offers/nope/claim", nil, http.StatusNotFound, "not_found"},
		{"unknown business stats", http.MethodGet, "/v1/businesses/nope/stats", nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, tt.method, tt.path, "alice", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}
}

func TestAuthRequired(t *testing.T) {
	f := newAPI(t, 100, 100)

	status, body := f.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", errorCode(body))

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/v1/me", nil)
	require.NoError(t, err)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "mallory",
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifierRejectsExpiredAndForeignIssuer(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer)

	sign := func(c jwt.RegisteredClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}

	_, err := v.Verify(sign(jwt.RegisteredClaims{Subject: "a", Issuer: testIssuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = v.Verify(sign(jwt.RegisteredClaims{Subject: "a", Issuer: "other", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))}))
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = v.Verify(sign(jwt.RegisteredClaims{Issuer: testIssuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))}))
	assert.ErrorIs(t, err, errMissingSubject)

	ident, err := v.Verify(token(t, "alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", ident.UserID)
	assert.Equal(t, "alice name", ident.DisplayName)
}

func TestRateLimit(t *testing.T) {
	f := newAPI(t, 0.001, 2)

	for range 2 {
		status, _ := f.do(t, http.MethodGet, "/v1/me", "alice", nil)
		require.Equal(t, http.StatusOK, status)
	}
	status, body := f.do(t, http.MethodGet, "/v1/me", "alice", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", errorCode(body))

	status, _ = f.do(t, http.MethodGet, "/v1/me", "bob", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPI(t, 100, 100)

	status, body := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransientErrorsMapToUnavailable(t *testing.T) {
	h := &Handler{}
	rec := httptest.NewRecorder()
	h.writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("connection refused"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"unavailable"`)
}
