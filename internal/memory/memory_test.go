package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "ScriptPilot/internal/errors"
)

func newTestMemory() *Memory {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	return New(NewInMemoryStore(), WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))
}

func TestMessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	conv, err := m.Open(ctx, "fallback", "web")
	require.NoError(t, err)

	stored, err := m.AppendMessage(ctx, conv.ID, RoleUser, "hello there", nil)
	require.NoError(t, err)

	recent, err := m.RecentMessages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, stored.ID, recent[0].ID)
	assert.Equal(t, RoleUser, recent[0].Role)
	assert.Equal(t, "hello there", recent[0].Content)
}

func TestRecentMessagesChronological(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	conv, err := m.Open(ctx, "p", "c")
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three", "four"} {
		_, err := m.AppendMessage(ctx, conv.ID, RoleUser, content, nil)
		require.NoError(t, err)
	}

	recent, err := m.RecentMessages(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "two", recent[0].Content)
	assert.Equal(t, "four", recent[2].Content)
}

func TestOpenReusesAndRotatesConversation(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	first, err := m.Open(ctx, "p", "web")
	require.NoError(t, err)
	again, err := m.Open(ctx, "p", "web")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	switched, err := m.Open(ctx, "p", "slack")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, switched.ID)

	m.Reset()
	_, ok := m.Active()
	assert.False(t, ok)

	recent, err := m.RecentMessages(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestAppendMessageValidation(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	_, err := m.AppendMessage(ctx, "", RoleUser, "x", nil)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	_, err = m.AppendMessage(ctx, "conv", Role("system"), "x", nil)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	_, err = m.AppendMessage(ctx, "missing", RoleUser, "x", nil)
	assert.Equal(t, xerrors.CodeNotFound, xerrors.CodeOf(err))
}

func TestSimilarAutomationsAndStats(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	for _, a := range []Automation{
		{Platform: "powershell", Description: "Restart the print spooler", Script: "Restart-Service Spooler"},
		{Platform: "applescript", Description: "Open Safari with my tabs", Script: "tell application \"Safari\""},
		{Platform: "bash", Description: "Back up the home directory", Script: "tar czf"},
	} {
		stored, err := m.RecordAutomation(ctx, a)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
		assert.False(t, stored.CreatedAt.IsZero())
	}

	similar, err := m.SimilarAutomations(ctx, "please restart nginx", 0)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "powershell", similar[0].Platform)

	byPlatform, err := m.SimilarAutomations(ctx, "bash", 0)
	require.NoError(t, err)
	require.Len(t, byPlatform, 1)

	none, err := m.SimilarAutomations(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	recent, err := m.RecentAutomations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "bash", recent[0].Platform)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalAutomations)
	assert.Equal(t, map[string]int{"powershell": 1, "applescript": 1, "bash": 1}, stats.PlatformDistribution)
}

func TestStatsEmpty(t *testing.T) {
	stats, err := newTestMemory().Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAutomations)
	assert.NotNil(t, stats.PlatformDistribution)
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"please back up my photos", "back", "photos"}, Terms("Please back up my photos"))
	assert.Nil(t, Terms(""))
}
