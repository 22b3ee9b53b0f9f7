package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scriptpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: anthropic
catalogs:
  personas: personas.yaml
agent:
  default_platform: " Bash "
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.DataDir)
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout())
	assert.Equal(t, filepath.Join(dir, "personas.yaml"), cfg.Catalogs.Personas)
	assert.Empty(t, cfg.Catalogs.Channels)
	assert.Equal(t, "bash", cfg.Agent.DefaultPlatform)
	assert.Equal(t, 10, cfg.Agent.HistoryDepth)
	assert.Equal(t, "memory", cfg.Queue.Driver)
	assert.Equal(t, 3, cfg.Queue.MaxRetries)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("server: [unterminated"), ".")
	assert.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("SCRIPTPILOT_TEST_KEY", "  from-env ")

	cfg := LLMConfig{APIKeyEnv: "SCRIPTPILOT_TEST_KEY"}
	assert.Equal(t, "from-env", cfg.ResolveAPIKey())

	cfg.APIKey = "explicit"
	assert.Equal(t, "explicit", cfg.ResolveAPIKey())
}
