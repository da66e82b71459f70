package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrDisabled)

	completer, err := NewCompleter(context.Background(), Config{Provider: ProviderGemini})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Nil(t, completer)

	_, err = NewCompleter(context.Background(), Config{Provider: "mystery", APIKey: "k"})
	assert.Error(t, err)
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("HUGGINGFACE_API_KEY", "")
	t.Setenv("HF_API_KEY", " hf-key ")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("GEMINI_API_KEY", "")

	assert.Equal(t, "hf-key", APIKeyFromEnv(""))
	assert.Equal(t, "hf-key", APIKeyFromEnv(ProviderHuggingFace))
	assert.Equal(t, "oa-key", APIKeyFromEnv("OpenAI"))
	assert.Equal(t, "", APIKeyFromEnv(ProviderGemini))

	var gemini *GeminiClient
	assert.False(t, gemini.Enabled())
	assert.Equal(t, "", gemini.Model())
}

func TestClientDefaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultHuggingFaceModel, client.Model())
	assert.Equal(t, defaultHuggingFaceURL, client.baseURL)
	assert.Equal(t, defaultTemperature, client.temperature)
	assert.Equal(t, defaultMaxTokens, client.maxTokens)

	openai, err := NewClient(Config{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIModel, openai.Model())
	assert.Equal(t, defaultOpenAIURL, openai.baseURL)
}

func TestClientComplete(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[]"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "secret", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	content, err := client.Complete(context.Background(), "bonjour")
	require.NoError(t, err)
	assert.Equal(t, "[]", content)

	assert.Equal(t, defaultHuggingFaceModel, got["model"])
	assert.EqualValues(t, 1000, got["max_tokens"])
	assert.EqualValues(t, 0.1, got["temperature"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "bonjour", msg["content"])
}

func TestClientCompleteErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "upstream error", status: http.StatusServiceUnavailable, body: `{"error":"loading"}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "bad json", status: http.StatusOK, body: `not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)
			_, err = client.Complete(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestWithFallback(t *testing.T) {
	failing := &fakeCompleter{enabled: true, err: errors.New("down")}
	empty := &fakeCompleter{enabled: true, reply: "  "}
	backup := &fakeCompleter{enabled: true, reply: "[]"}
	disabled := &fakeCompleter{enabled: false}

	content, err := WithFallback(failing, backup).Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "[]", content)

	content, err = WithFallback(empty, backup).Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "[]", content)

	_, err = WithFallback(failing, disabled).Complete(context.Background(), "p")
	assert.EqualError(t, err, "down")

	chain := WithFallback(disabled, disabled)
	assert.False(t, chain.Enabled())
	_, err = chain.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrDisabled)

	assert.Same(t, backup, WithFallback(nil, backup))
	assert.Same(t, failing, WithFallback(failing, nil))
}
