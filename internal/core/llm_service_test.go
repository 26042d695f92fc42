package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pagechat.io/pagechat/internal/config"
	"pagechat.io/pagechat/internal/store"
)

// newMockOpenAIServer serves a minimal chat completions endpoint and records
// the last request body it received.
func newMockOpenAIServer(t *testing.T, reply string) (*httptest.Server, *openai.ChatCompletionRequest) {
	t.Helper()
	var lastRequest openai.ChatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastRequest))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  lastRequest.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": reply},
					"finish_reason": "stop",
				},
			},
		})
	}))
	return server, &lastRequest
}

func newTestLLMService(t *testing.T, baseURL string) *LLMService {
	t.Helper()
	config.AppConfig = config.Config{
		SecretKey:     "test-secret",
		OpenAIAPIKey:  "test-key",
		OpenAIAPIBase: baseURL,
	}
	return NewLLMService()
}

func TestLLMServiceRespondAssemblesMessages(t *testing.T) {
	server, lastRequest := newMockOpenAIServer(t, "The page is about widgets.")
	defer server.Close()

	svc := newTestLLMService(t, server.URL)

	history := []HistoryEntry{
		{Role: store.RoleUser, Content: "earlier question"},
		{Role: store.RoleAssistant, Content: "earlier answer"},
	}
	reply, err := svc.Respond(context.Background(), "What is this page about?", "Widgets are great.", history)
	require.NoError(t, err)
	assert.Equal(t, "The page is about widgets.", reply)

	messages := lastRequest.Messages
	require.Len(t, messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "web scraping assistant")
	assert.Equal(t, openai.ChatMessageRoleUser, messages[1].Role)
	assert.Equal(t, "earlier question", messages[1].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, messages[2].Role)
	assert.Equal(t, "earlier answer", messages[2].Content)

	// Page context is folded into the final user turn.
	assert.Equal(t, openai.ChatMessageRoleUser, messages[3].Role)
	assert.Equal(t, "Website Content:\n\nWidgets are great.\n\nUser Request: What is this page about?", messages[3].Content)

	assert.Equal(t, "gpt-4o-mini", lastRequest.Model)
	assert.InDelta(t, 0.7, lastRequest.Temperature, 0.001)
	assert.Equal(t, 2000, lastRequest.MaxTokens)
}

func TestLLMServiceRespondWithoutPageContext(t *testing.T) {
	server, lastRequest := newMockOpenAIServer(t, "Hi!")
	defer server.Close()

	svc := newTestLLMService(t, server.URL)

	reply, err := svc.Respond(context.Background(), "Hello", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi!", reply)

	messages := lastRequest.Messages
	require.Len(t, messages, 2)
	assert.Equal(t, "Hello", messages[1].Content)
	assert.NotContains(t, messages[1].Content, "Website Content")
}

func TestLLMServiceRespondUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := newTestLLMService(t, server.URL)

	_, err := svc.Respond(context.Background(), "Hello", "", nil)
	assert.Error(t, err)
}
