package core

import "errors"

// Turn failures, distinguished at the HTTP boundary. Handlers match with
// errors.Is; the wrapped detail is safe to surface for the upstream variants.
var (
	// ErrEmptyPrompt is returned when the prompt is empty after trimming.
	ErrEmptyPrompt = errors.New("prompt is required")

	// ErrChatNotFound covers both a missing chat and a chat owned by another
	// user. Callers cannot tell the cases apart, so chat existence never
	// leaks to non-owners.
	ErrChatNotFound = errors.New("chat not found or access denied")

	// ErrFetchFailed means the content fetcher rejected the URL or could not
	// retrieve the page. The turn aborts before any persistence write.
	ErrFetchFailed = errors.New("failed to scrape website")

	// ErrGenerationFailed means the generative backend failed. No messages
	// are persisted for the turn; a cache write from this turn's own URL is
	// kept, since the fetched content itself is valid.
	ErrGenerationFailed = errors.New("failed to generate response")
)
