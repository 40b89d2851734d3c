package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadinsight/newsbot/internal/metrics"
)

func get(t *testing.T, m *metrics.Metrics, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	NewRouter(m).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealthHealthy(t *testing.T) {
	m := metrics.New()
	m.SetLastRun()

	w, body := get(t, m, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestHealthUnhealthy(t *testing.T) {
	m := metrics.New()
	m.SetError("telegram down")

	w, body := get(t, m, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "telegram down", body["last_error"])
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.IncrementRuns()
	m.IncrementAIFallbacks()
	m.IncrementAIFallbacks()

	w, body := get(t, m, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["runs_total"])
	assert.Equal(t, float64(2), body["ai_fallbacks"])
}
