// Package llm provides the model provider client used by the chat gateway.
package llm

import (
	"context"

	"github.com/hutfut/joshbot-go/internal/domain/entities/chat"
)

// StreamChunk is one increment of a streaming model response.
type StreamChunk struct {
	// Delta is the new text in this chunk.
	Delta string
	// Content is the full text accumulated so far, including Delta.
	Content string
	// Done marks the final chunk of a completed stream.
	Done bool
	// Err carries a mid-stream failure. The channel closes after it.
	Err error
}

// Provider streams model completions. The returned channel is closed by the
// provider when the stream ends, errors, or the context is cancelled.
type Provider interface {
	// Stream starts a completion for the given system prompt and
	// transcript. A non-nil error means the provider could not be
	// reached at all; mid-stream failures arrive on the channel.
	Stream(ctx context.Context, system string, turns []chat.Turn) (<-chan StreamChunk, error)

	// Available reports whether the provider is configured.
	Available() bool
}
