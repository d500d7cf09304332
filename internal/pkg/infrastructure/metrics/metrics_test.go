package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsANoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AggregationDone("week", time.Second)
		m.RecommendationCreated()
		m.RecommendationReused()
		m.ReadingsAppended(3)
	})
}

func TestHandlerExposesRecordedValues(t *testing.T) {
	m := NewMetrics()
	m.RecommendationCreated()
	m.ReadingsAppended(24)

	wrapped := m.WrapHandler("teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "energy_recommendations_created_total 1")
	assert.Contains(t, string(body), "energy_readings_appended_total 24")
	assert.Contains(t, string(body), `http_requests_total{route="teapot",status="418"} 1`)
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
