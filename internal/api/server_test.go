package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScriptPilot/internal/agent"
	"ScriptPilot/internal/channel"
	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/internal/llm"
	"ScriptPilot/internal/memory"
	"ScriptPilot/internal/observability/metrics"
	"ScriptPilot/internal/persona"
	"ScriptPilot/internal/task"
)

const bashReply = "```bash\n# Script Name: Disk Report\ndf -h\n```"

func newTestServer(t *testing.T, opts ...Option) (http.Handler, *task.MemoryStore) {
	t.Helper()
	client := llm.ClientFunc(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		if req.Purpose == "automation" {
			return &llm.Response{Text: bashReply}, nil
		}
		return &llm.Response{Text: "Hello from the assistant"}, nil
	})
	ag := agent.New(client, persona.NewStore(), channel.NewStore(), memory.New(memory.NewInMemoryStore()))
	store := task.NewMemoryStore()
	opts = append([]Option{WithJobs(task.NewService(store, task.NewMemoryQueue(8), 2))}, opts...)
	return NewServer(":0", ag, opts...).Handler(), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcessMessageEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/messages", `{"text":"hi there"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[agent.MessageResult](t, rec)
	assert.Equal(t, agent.ResultConversation, result.Type)
	assert.Equal(t, "Hello from the assistant", result.Message)

	rec = do(t, h, http.MethodPost, "/api/v1/messages", `{"text":"write a bash script to report disk usage"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result = decode[agent.MessageResult](t, rec)
	assert.Equal(t, agent.ResultAutomation, result.Type)
	require.NotNil(t, result.Automation)
	assert.Equal(t, "disk_report.sh", result.Automation.Filename)

	rec = do(t, h, http.MethodPost, "/api/v1/messages", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "INVALID_ARGUMENT", body.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/messages", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAutomationEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/automations", `{"description":"report disk usage","platform":"bash"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[memory.Automation](t, rec)
	assert.Equal(t, "bash", created.Platform)

	rec = do(t, h, http.MethodPost, "/api/v1/automations", `{"description":"report disk usage","platform":"cobol"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/automations?q=disk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]memory.Automation](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	rec = do(t, h, http.MethodGet, "/api/v1/automations?q=nothing-matches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[memory.Stats](t, rec)
	assert.Equal(t, 1, stats.TotalAutomations)
	assert.Equal(t, map[string]int{"bash": 1}, stats.PlatformDistribution)
}

func TestPersonaAndChannelEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/persona", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, persona.FallbackID, decode[persona.Persona](t, rec).ID)

	rec = do(t, h, http.MethodPost, "/api/v1/personas", `{"name":"Helper","greeting":"Hi","system_prompt":"You help."}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[persona.Persona](t, rec)
	assert.True(t, strings.HasPrefix(created.ID, persona.CustomPrefix))

	rec = do(t, h, http.MethodPost, "/api/v1/personas", `{"name":"Broken"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/v1/persona", `{"id":"`+created.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/v1/persona", `{"id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/personas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]persona.Persona](t, rec), 2)

	rec = do(t, h, http.MethodGet, "/api/v1/channels", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]channel.Channel](t, rec), 7)

	rec = do(t, h, http.MethodPost, "/api/v1/artifacts", `{"artifact_type":"block-kit","description":"Deploy approval"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/v1/channel", `{"id":"slack"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/v1/channel", "")
	assert.Equal(t, "slack", decode[channel.Channel](t, rec).ID)

	rec = do(t, h, http.MethodPost, "/api/v1/artifacts", `{"artifact_type":"block-kit","description":"Deploy approval"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	artifact := decode[channel.Artifact](t, rec)
	assert.Equal(t, "block-kit", artifact.ArtifactType)

	rec = do(t, h, http.MethodPut, "/api/v1/channel", `{"id":"fax"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobEndpoints(t *testing.T) {
	h, store := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/jobs", `{"id":"job-1","text":"hello"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	job := decode[task.Job](t, rec)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, task.StatusPending, job.Status)
	assert.Equal(t, "hello", job.Request.Text)

	require.NoError(t, store.MarkSucceeded(context.Background(), "job-1", agent.MessageResult{Type: agent.ResultConversation, Message: "hi"}))

	rec = do(t, h, http.MethodGet, "/api/v1/jobs/job-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[task.Job](t, rec)
	assert.Equal(t, task.StatusSucceeded, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "hi", got.Result.Message)

	rec = do(t, h, http.MethodGet, "/api/v1/jobs?status=succeeded", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]task.Job](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/v1/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/jobs", `{"text":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobsDisabled(t *testing.T) {
	ag := agent.New(llm.ClientFunc(func(context.Context, llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: "ok"}, nil
	}), nil, nil, nil)
	h := NewServer(":0", ag).Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/jobs", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTPMetrics(t *testing.T) {
	recorder := metrics.New()
	h, _ := newTestServer(t, WithMetrics(recorder))

	do(t, h, http.MethodGet, "/api/v1/jobs/missing", "")
	do(t, h, http.MethodGet, "/api/v1/jobs/other", "")

	count, err := testutil.GatherAndCount(recorder.Registry(), "scriptpilot_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		"INVALID_ARGUMENT":     http.StatusBadRequest,
		"PERSONA_INVALID":      http.StatusBadRequest,
		"UNSUPPORTED_PLATFORM": http.StatusUnprocessableEntity,
		"UNSUPPORTED_ARTIFACT": http.StatusUnprocessableEntity,
		"NOT_FOUND":            http.StatusNotFound,
		"CONFLICT":             http.StatusConflict,
		"STORAGE_FAILURE":      http.StatusInternalServerError,
		"UNKNOWN":              http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusFor(xerrors.Code(code)), code)
	}
}
