package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHTTPRecordAndExpose(t *testing.T) {
	reg := NewRegistry()
	m := NewHTTP(reg, "wmglue_test")

	m.Record("POST", "/put", "200", 10*time.Millisecond)
	m.Record("POST", "/put", "200", 20*time.Millisecond)
	m.Record("POST", "/get", "401", time.Millisecond)

	body := scrape(t, Handler(reg))
	assert.Contains(t, body, `wmglue_test_http_requests_total{method="POST",path="/put",status="200"} 2`)
	assert.Contains(t, body, `wmglue_test_http_requests_total{method="POST",path="/get",status="401"} 1`)
	assert.Contains(t, body, `wmglue_test_http_request_duration_seconds_count{method="POST",path="/put"} 2`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRegistriesAreIndependent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewHTTP(NewRegistry(), "wmglue_a")
		NewHTTP(NewRegistry(), "wmglue_a")
	})
}
