package core

import (
	"context"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"
	"pagechat.io/pagechat/internal/config"
	"pagechat.io/pagechat/internal/store"
)

const (
	defaultChatModel   = "gpt-4o-mini"
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000

	chatSystemInstruction = "You are a web scraping assistant. You analyze website content and extract " +
		"only the information the user requests.\n\n" +
		"Your responses should be:\n" +
		"- Clear and human-readable (no JSON, XML, or raw data)\n" +
		"- Focused on the specific information requested\n" +
		"- Well-organized with proper formatting\n" +
		"- Concise but complete\n\n" +
		"If the user asks for specific data points (like prices, names, dates), " +
		"present them in a clean, readable format."
)

// LLMService is the Responder backed by an OpenAI-compatible chat completions
// endpoint.
type LLMService struct {
	client *openai.Client
	model  string
}

func NewLLMService() *LLMService {
	cfg := openai.DefaultConfig(config.AppConfig.OpenAIAPIKey)
	if config.AppConfig.OpenAIAPIBase != "" {
		cfg.BaseURL = config.AppConfig.OpenAIAPIBase
		log.Printf("LLM service using custom API base: %s", config.AppConfig.OpenAIAPIBase)
	}

	return &LLMService{
		client: openai.NewClientWithConfig(cfg),
		model:  defaultChatModel,
	}
}

// Respond generates assistant text for the prompt. Page context, when
// present, is prepended to the final user turn; history is passed through
// verbatim ahead of it. All context travels in the request — the backend
// keeps no session state.
func (s *LLMService) Respond(ctx context.Context, prompt, pageContext string, history []HistoryEntry) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: chatSystemInstruction,
	})

	for _, entry := range history {
		role := openai.ChatMessageRoleUser
		if entry.Role == store.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: entry.Content,
		})
	}

	userContent := prompt
	if pageContext != "" {
		userContent = fmt.Sprintf("Website Content:\n\n%s\n\nUser Request: %s", pageContext, prompt)
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userContent,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chat completion returned no content")
	}

	return resp.Choices[0].Message.Content, nil
}
