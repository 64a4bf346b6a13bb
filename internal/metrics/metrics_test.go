package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.IntentClassified("schedule")
	m.IntentClassified("schedule")
	m.OperationDone("create_flow", "failed")
	m.ImmediateRunDone("TimedOut")
	m.LLMFallback()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Intents().WithLabelValues("schedule")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations().WithLabelValues("create_flow", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImmediateRuns().WithLabelValues("TimedOut")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMFallbacks()))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IntentClassified("chat")
		m.OperationDone("create_script", "succeeded")
		m.ImmediateRunDone("Resolved")
		m.LLMFallback()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IntentClassified("webhook")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `nl2flow_intents_total{kind="webhook"} 1`)
}
