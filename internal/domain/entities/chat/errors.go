package chat

import "errors"

var (
	// ErrConversationNotFound covers unknown ids, expired conversations,
	// and ids presented by a visitor who does not own them. The three are
	// indistinguishable to callers on purpose.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrVisitorQuotaExceeded means the visitor already holds the maximum
	// number of live conversations.
	ErrVisitorQuotaExceeded = errors.New("visitor conversation quota exceeded")

	// ErrConversationCapped means the conversation reached its terminal
	// visitor-turn ceiling and accepts no further visitor turns.
	ErrConversationCapped = errors.New("conversation capped")
)
