package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.RequestsTotal)
	assert.NotNil(t, m.RequestDuration)
	assert.NotNil(t, m.ReportsTotal)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestMetrics_RecordRequest(t *testing.T) {
	m := New()
	m.RecordRequest("GET", "200")
	m.RecordRequest("GET", "200")
	m.RecordRequest("POST", "400")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `taskflow_requests_total{method="GET",status="200"} 2`)
	assert.Contains(t, body, `taskflow_requests_total{method="POST",status="400"} 1`)
}

func TestMetrics_RecordReport(t *testing.T) {
	m := New()
	m.RecordReport("progress")
	m.RecordReport("progress")
	m.RecordReport("worker_performance")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `taskflow_reports_total{kind="progress"} 2`)
	assert.Contains(t, body, `taskflow_reports_total{kind="worker_performance"} 1`)
}

func TestMetrics_RecordError(t *testing.T) {
	m := New()
	m.RecordError("store", "internal")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `taskflow_errors_total{component="store",type="internal"} 1`)
}

func TestMetrics_ObserveDuration(t *testing.T) {
	m := New()
	m.ObserveDuration("GET", 0.05)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "taskflow_request_duration_seconds")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	handler := m.Handler()
	assert.NotNil(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	return strings.TrimSpace(string(body))
}
