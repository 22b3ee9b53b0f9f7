package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScriptPilot/internal/memory"
)

func TestStoreReplaysLog(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	now := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)

	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, store.CreateConversation(ctx, &memory.Conversation{ID: "c1", PersonaID: "fallback", ChannelID: "web", CreatedAt: now}))
	require.NoError(t, store.AppendMessage(ctx, &memory.Message{ID: "m1", ConversationID: "c1", Role: memory.RoleUser, Content: "hi", CreatedAt: now}))
	require.NoError(t, store.AppendMessage(ctx, &memory.Message{ID: "m2", ConversationID: "c1", Role: memory.RoleAssistant, Content: "hello", CreatedAt: now}))
	require.NoError(t, store.AppendAutomation(ctx, &memory.Automation{ID: "a1", Platform: "bash", Description: "list files", Script: "ls", CreatedAt: now}))

	reopened, err := Open(dir)
	require.NoError(t, err)

	messages, err := reopened.RecentMessages(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, memory.RoleAssistant, messages[1].Role)

	stats, err := reopened.AutomationStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalAutomations)
	assert.Equal(t, 1, stats.PlatformDistribution["bash"])
}

func TestStoreSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"kind":"conversation","conversation":{"id":"c1"}}
not json
{"kind":"message","message":{"id":"m0","conversation_id":"missing","role":"user","content":"orphan"}}
{"kind":"message","message":{"id":"m1","conversation_id":"c1","role":"user","content":"kept"}}
{"kind":"mystery"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, LogFilename), []byte(content), 0o644))

	store, err := Open(dir)
	require.NoError(t, err)

	messages, err := store.RecentMessages(context.Background(), "c1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "kept", messages[0].Content)
}

func TestFailedWriteIsNotLogged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	err = store.AppendMessage(ctx, &memory.Message{ID: "m1", ConversationID: "missing", Role: memory.RoleUser, Content: "x"})
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(dir, LogFilename))
	require.NoError(t, err)
	assert.Empty(t, data)
}
