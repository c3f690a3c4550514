// Package stores provides the in-memory conversation store.
package stores

import (
	"context"
	"sync"
	"time"

	"github.com/hutfut/joshbot-go/internal/domain/entities/chat"
	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/interfaces"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/infrastructure/security"
)

// ConversationsStore keeps conversations in process memory with an inverted
// index from visitor key to conversation ids. It is the default backend and
// the fallback when no durable store is configured; state is lost on restart.
type ConversationsStore struct {
	conversations map[string]*chat.Conversation
	visitorIndex  map[string][]string
	mu            sync.RWMutex
	limits        interfaces.ConversationLimits
	logger        *logging.ChanneledLogger
	now           func() time.Time
}

// NewConversationsStore creates an in-memory conversation store.
func NewConversationsStore(limits interfaces.ConversationLimits, logger *logging.ChanneledLogger) *ConversationsStore {
	if logger != nil {
		logger.Cache().Info("Initializing in-memory conversation store",
			"ttl", limits.TTL, "visitorQuota", limits.MaxConversationsPerVisitor)
	}
	return &ConversationsStore{
		conversations: make(map[string]*chat.Conversation),
		visitorIndex:  make(map[string][]string),
		limits:        limits,
		logger:        logger,
		now:           time.Now,
	}
}

// Create starts a conversation, enforcing the per-visitor quota. Expired
// conversations do not count against the quota and are evicted on the way.
func (cs *ConversationsStore) Create(_ context.Context, visitorKey, voiceID, personaID string) (*chat.Conversation, error) {
	start := time.Now()
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	live := 0
	for _, id := range cs.visitorIndex[visitorKey] {
		conv, ok := cs.conversations[id]
		if !ok {
			continue
		}
		if conv.Expired(now, cs.limits.TTL) {
			cs.evictLocked(id)
			continue
		}
		live++
	}

	if live >= cs.limits.MaxConversationsPerVisitor {
		if cs.logger != nil {
			cs.logger.Cache().Debug("Conversation create denied", "reason", "visitor_quota",
				"visitorKey", logging.MaskID(visitorKey), "live", live, "duration", time.Since(start))
		}
		return nil, chat.ErrVisitorQuotaExceeded
	}

	conv := chat.NewConversation(security.GenerateULID(), visitorKey, voiceID, personaID)
	cs.conversations[conv.ID] = conv
	cs.visitorIndex[visitorKey] = append(cs.visitorIndex[visitorKey], conv.ID)

	if cs.logger != nil {
		cs.logger.Cache().Debug("Conversation created", "conversationId", logging.MaskID(conv.ID),
			"visitorKey", logging.MaskID(visitorKey), "voiceId", voiceID, "duration", time.Since(start))
	}
	return conv.Clone(), nil
}

// Get returns the visitor's conversation. Unknown, expired, and foreign ids
// are all reported as not found.
func (cs *ConversationsStore) Get(_ context.Context, conversationID, visitorKey string) (*chat.Conversation, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	conv, err := cs.lookupLocked(conversationID, visitorKey)
	if err != nil {
		return nil, err
	}
	return conv.Clone(), nil
}

// AppendVisitorTurn records a visitor turn. The turn that reaches the
// ceiling is still recorded; the conversation then stops accepting more.
func (cs *ConversationsStore) AppendVisitorTurn(_ context.Context, conversationID, visitorKey, text string) (*chat.Conversation, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	conv, err := cs.lookupLocked(conversationID, visitorKey)
	if err != nil {
		return nil, err
	}
	if conv.Capped {
		return nil, chat.ErrConversationCapped
	}

	conv.Append(chat.RoleVisitor, text, cs.limits.MaxStoredTurns)
	conv.VisitorTurnCount++
	if conv.VisitorTurnCount >= cs.limits.VisitorTurnLimit {
		conv.Capped = true
		if cs.logger != nil {
			cs.logger.Cache().Info("Conversation reached visitor-turn ceiling",
				"conversationId", logging.MaskID(conversationID), "turns", conv.VisitorTurnCount)
		}
	}
	return conv.Clone(), nil
}

// AppendAssistantTurn records the assistant's reply.
func (cs *ConversationsStore) AppendAssistantTurn(_ context.Context, conversationID, visitorKey, text string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	conv, err := cs.lookupLocked(conversationID, visitorKey)
	if err != nil {
		return err
	}
	conv.Append(chat.RoleAssistant, text, cs.limits.MaxStoredTurns)
	return nil
}

// SweepExpired evicts conversations idle past the TTL.
func (cs *ConversationsStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	start := time.Now()
	cs.mu.Lock()
	defer cs.mu.Unlock()

	removed := 0
	for id, conv := range cs.conversations {
		if conv.Expired(now, cs.limits.TTL) {
			cs.evictLocked(id)
			removed++
		}
	}

	if removed > 0 && cs.logger != nil {
		cs.logger.Cache().Info("Swept expired conversations", "removed", removed,
			"remaining", len(cs.conversations), "duration", time.Since(start))
	}
	return removed, nil
}

// Summary reports store occupancy.
func (cs *ConversationsStore) Summary(_ context.Context) (interfaces.StoreSummary, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return interfaces.StoreSummary{
		Conversations: len(cs.conversations),
		Visitors:      len(cs.visitorIndex),
		Backend:       "memory",
	}, nil
}

// lookupLocked resolves and validates a conversation. Expired records are
// evicted on access so a later sweep of the same id is a no-op.
func (cs *ConversationsStore) lookupLocked(conversationID, visitorKey string) (*chat.Conversation, error) {
	conv, ok := cs.conversations[conversationID]
	if !ok || conv.VisitorKey != visitorKey {
		return nil, chat.ErrConversationNotFound
	}
	if conv.Expired(cs.now(), cs.limits.TTL) {
		cs.evictLocked(conversationID)
		return nil, chat.ErrConversationNotFound
	}
	return conv, nil
}

// evictLocked removes a conversation and maintains the inverted index.
func (cs *ConversationsStore) evictLocked(conversationID string) {
	conv, ok := cs.conversations[conversationID]
	if !ok {
		return
	}
	delete(cs.conversations, conversationID)

	ids := cs.visitorIndex[conv.VisitorKey]
	for i, id := range ids {
		if id == conversationID {
			cs.visitorIndex[conv.VisitorKey] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(cs.visitorIndex[conv.VisitorKey]) == 0 {
		delete(cs.visitorIndex, conv.VisitorKey)
	}
}
