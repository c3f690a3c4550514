// Package interfaces defines the conversation store contract implemented by
// the in-memory store and the durable store.
package interfaces

import (
	"context"
	"time"

	"github.com/hutfut/joshbot-go/internal/domain/entities/chat"
)

// ConversationLimits carries the store's per-visitor and per-conversation
// ceilings.
type ConversationLimits struct {
	MaxConversationsPerVisitor int
	MaxStoredTurns             int
	VisitorTurnLimit           int
	TTL                        time.Duration
}

// StoreSummary reports store occupancy for the health surface.
type StoreSummary struct {
	Conversations int    `json:"conversations"`
	Visitors      int    `json:"visitors"`
	Backend       string `json:"backend"`
}

// ConversationStore owns conversation state. Implementations enforce the
// visitor quota on create, the stored-turn window and terminal visitor-turn
// cap on append, and the idle TTL everywhere.
type ConversationStore interface {
	// Create starts a conversation for the visitor, enforcing the
	// per-visitor quota against live conversations only.
	Create(ctx context.Context, visitorKey, voiceID, personaID string) (*chat.Conversation, error)

	// Get returns the visitor's conversation. Unknown, expired, and
	// foreign ids all return chat.ErrConversationNotFound.
	Get(ctx context.Context, conversationID, visitorKey string) (*chat.Conversation, error)

	// AppendVisitorTurn records a visitor turn, refreshing activity and
	// advancing the terminal cap. Returns chat.ErrConversationCapped
	// when the cap was already reached.
	AppendVisitorTurn(ctx context.Context, conversationID, visitorKey, text string) (*chat.Conversation, error)

	// AppendAssistantTurn records the assistant's reply. Assistant turns
	// never count against the visitor-turn cap.
	AppendAssistantTurn(ctx context.Context, conversationID, visitorKey, text string) error

	// SweepExpired removes conversations idle past the TTL and returns
	// how many were removed.
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	// Summary reports current occupancy.
	Summary(ctx context.Context) (StoreSummary, error)
}
