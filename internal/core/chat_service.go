package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pagechat.io/pagechat/internal/store"
)

const previewLength = 50

// FetchResult is the extracted content of a successfully scraped page.
type FetchResult struct {
	Content string
	Title   string
}

// Fetcher retrieves readable content from a URL. It has no memory of past
// calls; caching is the orchestrator's concern.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// HistoryEntry is one prior turn-part projected for the generative backend.
type HistoryEntry struct {
	Role    string
	Content string
}

// Responder produces assistant text from a prompt, optional page context and
// prior turns. It is stateless per call.
type Responder interface {
	Respond(ctx context.Context, prompt, pageContext string, history []HistoryEntry) (string, error)
}

// ChatService orchestrates a chat turn: ownership checks, the per-chat scrape
// cache, history assembly, the responder call and ordered persistence.
type ChatService struct {
	dbStore   *store.SQLiteStore
	fetcher   Fetcher
	responder Responder

	mu        sync.Mutex
	chatLocks map[string]*sync.Mutex
}

func NewChatService(db *store.SQLiteStore, fetcher Fetcher, responder Responder) *ChatService {
	return &ChatService{
		dbStore:   db,
		fetcher:   fetcher,
		responder: responder,
		chatLocks: make(map[string]*sync.Mutex),
	}
}

// lockChat serializes turns on a single chat so two concurrent turns cannot
// interleave their message pairs. Turns on different chats do not contend.
func (s *ChatService) lockChat(chatID string) func() {
	s.mu.Lock()
	lock, ok := s.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.chatLocks[chatID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// TurnResult is the outcome of a successful turn.
type TurnResult struct {
	Response string
	ChatID   string
}

// HandleTurn runs one conversation turn for userID. An empty chatID creates a
// new chat owned by the user. A non-empty url is fetched and replaces the
// chat's cached scrape; without a url the cached content (if any) is reused
// as page context. On success the user prompt and assistant reply are
// appended, in that order, and the chat's updated_at advances.
func (s *ChatService) HandleTurn(ctx context.Context, userID int64, chatID, url, prompt string) (*TurnResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	url = strings.TrimSpace(url)

	if chatID != "" {
		unlock := s.lockChat(chatID)
		defer unlock()

		ownerID, found, err := s.dbStore.GetChatOwner(chatID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve chat: %w", err)
		}
		if !found || ownerID != userID {
			return nil, ErrChatNotFound
		}
	} else {
		chat, err := s.dbStore.CreateChat(userID)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat: %w", err)
		}
		chatID = chat.ID

		unlock := s.lockChat(chatID)
		defer unlock()
	}

	history, err := s.ProjectHistory(chatID)
	if err != nil {
		return nil, err
	}

	// Resolve page context: a fresh scrape supersedes the cache, otherwise
	// fall back to the cached content. Neither is required; a turn with no
	// URL and no prior scrape is plain conversation.
	pageContext := ""
	if url != "" {
		result, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		pageContext = result.Content

		if err := s.dbStore.UpsertScrapeCache(chatID, url, pageContext); err != nil {
			return nil, fmt.Errorf("failed to cache scraped content: %w", err)
		}
	} else {
		cache, err := s.dbStore.GetScrapeCache(chatID)
		if err != nil {
			return nil, fmt.Errorf("failed to read scrape cache: %w", err)
		}
		if cache != nil && cache.LastContent != "" {
			pageContext = cache.LastContent
		}
	}

	response, err := s.responder.Respond(ctx, prompt, pageContext, history)
	if err != nil {
		// The cache write above is deliberately kept: the fetched content is
		// valid for this chat's URL even though the turn did not complete.
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	userMsg := store.Message{ChatID: chatID, Role: store.RoleUser, Content: prompt}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	assistantMsg := store.Message{ChatID: chatID, Role: store.RoleAssistant, Content: response}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	if err := s.dbStore.TouchChat(chatID); err != nil {
		return nil, fmt.Errorf("failed to update chat timestamp: %w", err)
	}

	return &TurnResult{Response: response, ChatID: chatID}, nil
}

// ProjectHistory returns every message of the chat, oldest first, reduced to
// the role/content pairs the responder consumes. No windowing is applied; the
// responder's own context limits are the effective bound.
func (s *ChatService) ProjectHistory(chatID string) ([]HistoryEntry, error) {
	messages, err := s.dbStore.GetMessagesByChatID(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	history := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		history = append(history, HistoryEntry{Role: msg.Role, Content: msg.Content})
	}
	return history, nil
}

// NewChat creates an empty chat owned by userID and returns its id.
func (s *ChatService) NewChat(userID int64) (string, error) {
	chat, err := s.dbStore.CreateChat(userID)
	if err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}
	return chat.ID, nil
}

// ChatSummary is one row of a user's chat listing.
type ChatSummary struct {
	ChatID    string `json:"chat_id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Preview   string `json:"preview"`
}

// ListChats returns the user's chats, most recently active first, each with a
// preview derived from its first message.
func (s *ChatService) ListChats(userID int64) ([]ChatSummary, error) {
	chats, err := s.dbStore.GetChatsByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	summaries := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		first, err := s.dbStore.GetFirstMessageByChatID(chat.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load preview for chat %s: %w", chat.ID, err)
		}
		summaries = append(summaries, ChatSummary{
			ChatID:    chat.ID,
			CreatedAt: chat.CreatedAt.Format("2006-01-02T15:04:05"),
			UpdatedAt: chat.UpdatedAt.Format("2006-01-02T15:04:05"),
			Preview:   Preview(first),
		})
	}
	return summaries, nil
}

// GetChatMessages returns the chat's messages in order after verifying
// ownership. A missing chat and a foreign chat report identically.
func (s *ChatService) GetChatMessages(chatID string, userID int64) ([]store.Message, error) {
	ownerID, found, err := s.dbStore.GetChatOwner(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chat: %w", err)
	}
	if !found || ownerID != userID {
		return nil, ErrChatNotFound
	}
	return s.dbStore.GetMessagesByChatID(chatID)
}

// Preview derives a chat-listing preview from the chat's first message:
// the content truncated to 50 characters with a trailing ellipsis, or
// "New Chat" when the chat has no messages yet.
func Preview(first *store.Message) string {
	if first == nil {
		return "New Chat"
	}
	runes := []rune(first.Content)
	if len(runes) > previewLength {
		return string(runes[:previewLength]) + "..."
	}
	return first.Content
}
