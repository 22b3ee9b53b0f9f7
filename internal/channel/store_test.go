package channel

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "ScriptPilot/internal/errors"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore(WithClock(func() time.Time { return fixedNow }))
}

func TestBuiltinCatalog(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, DefaultID, s.Current().ID)

	expected := map[string][]string{
		"web":                 {"css-styling", "html-component", "javascript-widget"},
		"slack":               {"block-kit", "modal", "workflow"},
		"teams":               {"adaptive-card", "message-extension"},
		"discord":             {"embed", "slash-command"},
		"twitch":              {"chat-command"},
		"whatsapp":            {"message-template"},
		"apple-business-chat": {"list-picker", "rich-link"},
	}
	channels := s.List()
	require.Len(t, channels, len(expected))
	for _, ch := range channels {
		assert.Equal(t, expected[ch.ID], ch.Artifacts, ch.ID)
		assert.NotEmpty(t, ch.Capabilities, ch.ID)
	}
}

func TestBlockKitRequiresSlack(t *testing.T) {
	s := newTestStore()

	_, err := s.GenerateArtifact("block-kit", "Deploy finished", nil)
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeUnsupportedArtifact, xerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "not supported by channel")

	_, ok := s.Switch("slack")
	require.True(t, ok)

	artifact, err := s.GenerateArtifact("block-kit", "Deploy finished", nil)
	require.NoError(t, err)
	assert.Equal(t, "slack", artifact.Channel)
	assert.Equal(t, "block-kit", artifact.ArtifactType)
	assert.Equal(t, "Deploy finished", artifact.Description)
	assert.Equal(t, fixedNow, artifact.GeneratedAt)
	assert.Equal(t, "slack-block-kit", artifact.Artifact["type"])
	assert.Contains(t, artifact.Artifact, "blocks")
}

func TestSwitchUnknownChannel(t *testing.T) {
	s := newTestStore()
	s.Switch("discord")

	ch, ok := s.Switch("myspace")
	assert.False(t, ok)
	assert.Nil(t, ch)
	assert.Equal(t, "discord", s.Current().ID)
}

func TestEveryBuilderIsDeterministic(t *testing.T) {
	options := map[string]any{
		"title":   "Status",
		"items":   []any{"Yes", "No"},
		"url":     "https://example.com",
		"buttons": []any{map[string]any{"text": "Open", "url": "https://example.com"}},
		"fields":  []any{map[string]any{"title": "Env", "value": "prod"}},
	}
	s := newTestStore()
	for _, ch := range s.List() {
		_, ok := s.Switch(ch.ID)
		require.True(t, ok)
		for _, artifactType := range ch.Artifacts {
			first, err := s.GenerateArtifact(artifactType, "Service status update. More text.", options)
			require.NoError(t, err, "%s/%s", ch.ID, artifactType)
			second, err := s.GenerateArtifact(artifactType, "Service status update. More text.", options)
			require.NoError(t, err)

			assert.Equal(t, ch.ID+"-"+artifactType, first.Artifact["type"])
			a, _ := json.Marshal(first)
			b, _ := json.Marshal(second)
			assert.JSONEq(t, string(a), string(b))
		}
	}
}

func TestBlockKitOptions(t *testing.T) {
	s := newTestStore()
	s.Switch("slack")
	artifact, err := s.GenerateArtifact("block-kit", "Backup completed", map[string]any{
		"title":   "Nightly backup",
		"fields":  []any{map[string]any{"title": "Size", "value": "12 GB"}},
		"buttons": []any{map[string]any{"text": "View logs", "value": "logs"}},
	})
	require.NoError(t, err)

	blocks := artifact.Artifact["blocks"].([]map[string]any)
	require.Len(t, blocks, 4)
	assert.Equal(t, "header", blocks[0]["type"])
	assert.Equal(t, "Nightly backup", blocks[0]["text"].(map[string]any)["text"])
	assert.Equal(t, "actions", blocks[3]["type"])
}

func TestDiscordEmbedColour(t *testing.T) {
	s := newTestStore()
	s.Switch("discord")

	artifact, err := s.GenerateArtifact("embed", "Server is up", map[string]any{"color": "#ff0000"})
	require.NoError(t, err)
	embeds := artifact.Artifact["embeds"].([]map[string]any)
	assert.Equal(t, int64(0xff0000), embeds[0]["color"])

	_, err = s.GenerateArtifact("embed", "Server is up", map[string]any{"color": "red"})
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}

func TestHTMLComponentEscapes(t *testing.T) {
	s := newTestStore()
	artifact, err := s.GenerateArtifact("html-component", "<script>alert(1)</script>", nil)
	require.NoError(t, err)
	assert.NotContains(t, artifact.Artifact["html"], "<script>")
}

func TestRichLinkNeedsURL(t *testing.T) {
	s := newTestStore()
	s.Switch("apple-business-chat")
	_, err := s.GenerateArtifact("rich-link", "Docs", nil)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}

func TestEmptyDescriptionRejected(t *testing.T) {
	s := newTestStore()
	_, err := s.GenerateArtifact("html-component", "  ", nil)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}

func TestApplyOverlay(t *testing.T) {
	s := newTestStore()
	err := s.ApplyOverlay([]byte(`
- id: slack
  name: Company Slack
  artifacts: [block-kit, carousel]
- id: unknown
  name: Ignored
`))
	require.NoError(t, err)

	ch, ok := s.Get("slack")
	require.True(t, ok)
	assert.Equal(t, "Company Slack", ch.Name)
	assert.Equal(t, []string{"block-kit"}, ch.Artifacts)

	s.Switch("slack")
	_, err = s.GenerateArtifact("modal", "Ask for input", nil)
	assert.Equal(t, xerrors.CodeUnsupportedArtifact, xerrors.CodeOf(err))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "restart_the_web_server", slug("Restart the  web-server!", "_", 0))
	assert.Equal(t, "abc", slug("ABC def", "-", 3))
	assert.Equal(t, "", slug("!!!", "-", 0))
}

func TestSlugTruncatesByRune(t *testing.T) {
	got := slug(strings.Repeat("部署", 40), "_", 200)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("部署", 40), got)

	got = slug(strings.Repeat("部署", 40), "_", 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "部署部署部", got)

	assert.Equal(t, "重启_ng", slug("重启 nginx", "_", 5))
}
