package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScriptPilot/internal/agent"
	"ScriptPilot/internal/channel"
	"ScriptPilot/internal/config"
	"ScriptPilot/internal/llm"
	"ScriptPilot/internal/memory"
	"ScriptPilot/internal/persona"
)

func newChatAgent() *agent.Agent {
	client := llm.ClientFunc(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		if req.Purpose == "automation" {
			return &llm.Response{Text: "```bash\n# Script Name: Disk Report\ndf -h\n```"}, nil
		}
		return &llm.Response{Text: "Sure thing."}, nil
	})
	return agent.New(client, persona.NewStore(), channel.NewStore(), memory.New(memory.NewInMemoryStore()))
}

func TestRunChatConversationAndCommands(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"hello",
		"write a bash script to report disk usage",
		"/channel slack",
		"/channel fax",
		"/stats",
		"/quit",
		"never read",
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), newChatAgent(), in, &out))

	text := out.String()
	assert.Contains(t, text, "Sure thing.")
	assert.Contains(t, text, "df -h")
	assert.Contains(t, text, "switched to")
	assert.Contains(t, text, `unknown channel "fax"`)
	assert.Contains(t, text, "automations: 1")
	assert.NotContains(t, text, "never read")
}

func TestCreateLLMClientRequiresKey(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.LLM.APIKeyEnv = "SCRIPTPILOT_TEST_MISSING_KEY"
	_, err := createLLMClient(cfg)
	assert.Error(t, err)

	cfg.LLM.Provider = "anthropic"
	_, err = createLLMClient(cfg)
	assert.Error(t, err)

	cfg.LLM.Provider = "llama"
	cfg.LLM.APIKey = "key"
	_, err = createLLMClient(cfg)
	assert.ErrorContains(t, err, "llama")
}

func TestCreateQueueDrivers(t *testing.T) {
	queue, err := createQueue(context.Background(), config.QueueConfig{Driver: "memory"})
	require.NoError(t, err)
	require.NoError(t, queue.Close())

	_, err = createQueue(context.Background(), config.QueueConfig{Driver: "kafka"})
	assert.Error(t, err)
}
