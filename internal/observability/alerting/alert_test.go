package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "ScriptPilot/internal/errors"
)

type recordingNotifier struct {
	channel Channel
	events  []Event
	err     error
}

func (n *recordingNotifier) Channel() Channel { return n.channel }

func (n *recordingNotifier) Notify(_ context.Context, event Event) error {
	n.events = append(n.events, event)
	return n.err
}

func TestFanoutDeliversToAll(t *testing.T) {
	a := &recordingNotifier{channel: ChannelLog}
	b := &recordingNotifier{channel: ChannelSlack, err: errors.New("boom")}
	d := NewFanout(a, nil, b)

	err := d.Notify(context.Background(), Event{Code: xerrors.CodeTimeout, JobID: "job-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel slack")
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, []Channel{ChannelLog, ChannelSlack}, d.Channels())
}

func TestNilFanoutIsNoop(t *testing.T) {
	var d *FanoutDispatcher
	assert.NoError(t, d.Notify(context.Background(), Event{}))
}

func TestLogNotifierWritesRecord(t *testing.T) {
	var buf bytes.Buffer
	n := &LogNotifier{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	require.NoError(t, n.Notify(context.Background(), Event{
		Code:     xerrors.CodeUpstreamFailure,
		Message:  "completion service failure",
		JobID:    "job-9",
		Metadata: map[string]string{"platform": "bash"},
	}))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "UPSTREAM_FAILURE", record["code"])
	assert.Equal(t, "job-9", record["job_id"])
	assert.Equal(t, "bash", record["platform"])
}

func TestSlackNotifierViaWebhook(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &SlackNotifier{Sender: NewWebhookSender(srv.URL)}
	require.NoError(t, n.Notify(context.Background(), Event{
		Code:       xerrors.CodeRetriesExhausted,
		Severity:   xerrors.SeverityWarning,
		Message:    "retries exhausted",
		JobID:      "job-2",
		Attempts:   3,
		MaxRetries: 3,
	}))
	assert.Contains(t, payload["text"], "RETRIES_EXHAUSTED")
	assert.Contains(t, payload["text"], "job-2")
}

func TestWebhookSenderReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL).Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUnconfiguredSlackNotifierSkips(t *testing.T) {
	n := &SlackNotifier{}
	assert.NoError(t, n.Notify(context.Background(), Event{JobID: "x"}))
}
