package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOutcomes(t *testing.T) {
	m := New()

	m.RecordSave(OutcomeCreated)
	m.RecordSave(OutcomeExisting)
	m.RecordSave(OutcomeExisting)
	m.RecordClaim(OutcomeConflict)
	m.RecordAward(5, false)
	m.RecordAward(5, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.saves.WithLabelValues(OutcomeExisting)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.claims.WithLabelValues(OutcomeConflict)))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.coinsAwarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.awardsRecovered))
}

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.InstrumentHandler)
	r.Get("/v1/recommendations/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/recommendations/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/recommendations/{id}", "418"))
	assert.Equal(t, 1.0, got)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shareit_http_requests_total")
}
