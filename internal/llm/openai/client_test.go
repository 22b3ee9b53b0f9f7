package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScriptPilot/internal/llm"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestGenerateSuccess(t *testing.T) {
	var captured struct {
		Path          string
		Authorization string
		Body          map[string]any
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.Authorization = r.Header.Get("Authorization")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&captured.Body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": "  ```bash\necho hi\n```  ",
					},
				},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), llm.Request{System: "be terse", Prompt: "say hi"})
	require.NoError(t, err)

	assert.Equal(t, "```bash\necho hi\n```", resp.Text)
	assert.True(t, strings.HasSuffix(captured.Path, "/chat/completions"))
	assert.Equal(t, "Bearer test", captured.Authorization)
	assert.Equal(t, "gpt-4o-mini", captured.Body["model"])

	messages, ok := captured.Body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), llm.Request{Prompt: "test"})
	assert.Error(t, err)
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), llm.Request{Prompt: "   "})
	assert.Error(t, err)
}
