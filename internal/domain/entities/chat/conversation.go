// Package chat provides domain entities for gateway conversations.
// A conversation is the authoritative, server-owned transcript for one
// widget session; clients never supply history, only a conversation id.
package chat

import "time"

// Role identifies who produced a turn.
type Role string

const (
	RoleVisitor   Role = "visitor"
	RoleAssistant Role = "assistant"
)

// Turn is a single message within a conversation transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is one chat session. Persona and voice are fixed at creation;
// later client requests cannot change them.
type Conversation struct {
	ID               string    `json:"id"`
	VisitorKey       string    `json:"visitorKey"`
	VoiceID          string    `json:"voiceId"`
	PersonaID        string    `json:"personaId"`
	Turns            []Turn    `json:"turns"`
	VisitorTurnCount int       `json:"visitorTurnCount"`
	Capped           bool      `json:"capped"`
	CreatedAt        time.Time `json:"createdAt"`
	LastActivityAt   time.Time `json:"lastActivityAt"`
}

// NewConversation creates a conversation record with server-issued id.
func NewConversation(id, visitorKey, voiceID, personaID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:             id,
		VisitorKey:     visitorKey,
		VoiceID:        voiceID,
		PersonaID:      personaID,
		Turns:          make([]Turn, 0, 8),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Append adds a turn, trims stored history to maxStored (oldest dropped
// first), and refreshes activity. Visitor-turn accounting and the terminal
// cap are handled by the store, which owns mutation ordering.
func (c *Conversation) Append(role Role, text string, maxStored int) {
	c.Turns = append(c.Turns, Turn{Role: role, Text: text, CreatedAt: time.Now().UTC()})
	if maxStored > 0 && len(c.Turns) > maxStored {
		c.Turns = c.Turns[len(c.Turns)-maxStored:]
	}
	c.LastActivityAt = time.Now().UTC()
}

// Recent returns the most recent n turns.
func (c *Conversation) Recent(n int) []Turn {
	if n <= 0 || len(c.Turns) <= n {
		out := make([]Turn, len(c.Turns))
		copy(out, c.Turns)
		return out
	}
	out := make([]Turn, n)
	copy(out, c.Turns[len(c.Turns)-n:])
	return out
}

// Clone returns a copy safe to hand outside the store's lock.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Turns = make([]Turn, len(c.Turns))
	copy(out.Turns, c.Turns)
	return &out
}

// Expired reports whether the conversation is past its TTL at the given time.
func (c *Conversation) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.LastActivityAt) > ttl
}
