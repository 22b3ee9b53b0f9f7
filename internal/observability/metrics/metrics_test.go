package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := New()
	r.ObserveMessage("automation")
	r.ObserveMessage("automation")
	r.ObserveMessage("conversation")
	r.ObserveAutomation("bash")
	r.ObserveArtifact("slack", "block-kit")
	r.ObserveJob("succeeded")
	r.ObserveHTTPRequest("/api/v1/messages", "POST", 200, 30*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.messages.WithLabelValues("automation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.messages.WithLabelValues("conversation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.automations.WithLabelValues("bash")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.artifacts.WithLabelValues("slack", "block-kit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobs.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("/api/v1/messages", "POST", "200")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveLLM("automation", 1200*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `scriptpilot_llm_request_duration_seconds_count{path="automation"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveMessage("error")
		r.ObserveAutomation("bash")
		r.ObserveArtifact("web", "css-styling")
		r.ObserveJob("failed")
		r.ObserveLLM("conversation", time.Second)
		r.ObserveHTTPRequest("/", "GET", 200, time.Millisecond)
	})
	assert.Nil(t, r.Registry())
}
