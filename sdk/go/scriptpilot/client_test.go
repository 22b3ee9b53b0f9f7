package scriptpilot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScriptPilot/internal/agent"
	"ScriptPilot/internal/api"
	"ScriptPilot/internal/channel"
	"ScriptPilot/internal/llm"
	"ScriptPilot/internal/memory"
	"ScriptPilot/internal/persona"
	"ScriptPilot/internal/task"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	model := llm.ClientFunc(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		if req.Purpose == "automation" {
			return &llm.Response{Text: "```powershell\n# Script Name: Restart Spooler\nRestart-Service -Name Spooler\n```"}, nil
		}
		return &llm.Response{Text: "Glad to help."}, nil
	})
	ag := agent.New(model, persona.NewStore(), channel.NewStore(), memory.New(memory.NewInMemoryStore()))

	ctx, cancel := context.WithCancel(context.Background())
	store := task.NewMemoryStore()
	queue := task.NewMemoryQueue(16)
	jobs := task.NewService(store, queue, 2)
	processor := task.NewProcessor(ag, store, queue, queue)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = processor.Start(ctx)
	}()

	srv := httptest.NewServer(api.NewServer(":0", ag, api.WithJobs(jobs)).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})

	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)
	return client
}

func TestSendMessage(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	reply, err := client.SendMessage(ctx, MessageRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "conversation", reply.Type)
	assert.Equal(t, "Glad to help.", reply.Message)

	reply, err = client.SendMessage(ctx, MessageRequest{Text: "restart the print spooler", Platform: "powershell"})
	require.NoError(t, err)
	assert.Equal(t, "automation", reply.Type)
	require.NotNil(t, reply.Automation)
	assert.Equal(t, "restart-spooler.ps1", reply.Automation.Filename)
}

func TestAutomationsAndStats(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	created, err := client.GenerateAutomation(ctx, "restart the print spooler", "powershell")
	require.NoError(t, err)
	assert.Equal(t, "powershell", created.Platform)

	found, err := client.SearchAutomations(ctx, "spooler", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalAutomations)
}

func TestAPIErrorCarriesCode(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GenerateAutomation(context.Background(), "anything", "cobol")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "UNSUPPORTED_PLATFORM", apiErr.Code)

	_, err = client.SwitchPersona(context.Background(), "nobody")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestPersonasAndChannels(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	created, err := client.CreatePersona(ctx, Persona{Name: "Ops", Greeting: "Yo", SystemPrompt: "Be terse."})
	require.NoError(t, err)
	switched, err := client.SwitchPersona(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ops", switched.Name)

	personas, err := client.Personas(ctx)
	require.NoError(t, err)
	assert.Len(t, personas, 2)

	channels, err := client.Channels(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, channels)

	_, err = client.SwitchChannel(ctx, "discord")
	require.NoError(t, err)
	artifact, err := client.GenerateArtifact(ctx, "embed", "Build finished", nil)
	require.NoError(t, err)
	assert.Equal(t, "discord", artifact.Channel)
}

func TestJobLifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := client.SubmitJob(ctx, "job-42", MessageRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "job-42", job.ID)

	done, err := client.WaitForJob(ctx, job.ID, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, "Glad to help.", done.Result.Message)

	jobs, err := client.ListJobs(ctx, JobFilter{Status: "succeeded"})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
