package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hutfut/joshbot-go/internal/domain/entities/chat"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
)

const (
	anthropicVersionHeader = "anthropic-version"
	anthropicVersionValue  = "2023-06-01"
)

// ClaudeConfig carries the provider settings.
type ClaudeConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// ClaudeProvider streams completions from the Anthropic Messages API.
type ClaudeProvider struct {
	config ClaudeConfig
	client *http.Client
	logger *logging.ChanneledLogger
}

// NewClaudeProvider creates a provider. An empty API key produces a provider
// that reports unavailable; the gateway then serves canned fallbacks.
func NewClaudeProvider(config ClaudeConfig, logger *logging.ChanneledLogger) *ClaudeProvider {
	// The timeout covers connecting and waiting for response headers only.
	// A client-level timeout would also bound reading the streamed body and
	// cut off slow replies mid-stream; the request context owns that.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = config.Timeout
	return &ClaudeProvider{
		config: config,
		client: &http.Client{Transport: transport},
		logger: logger,
	}
}

// Available reports whether an API key is configured.
func (p *ClaudeProvider) Available() bool {
	return p.config.APIKey != ""
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream starts a streaming completion. Visitor turns map to the user role
// and assistant turns to the assistant role.
func (p *ClaudeProvider) Stream(ctx context.Context, system string, turns []chat.Turn) (<-chan StreamChunk, error) {
	start := time.Now()

	messages := make([]claudeMessage, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == chat.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, claudeMessage{Role: role, Content: turn.Text})
	}

	body, err := json.Marshal(map[string]any{
		"model":      p.config.Model,
		"max_tokens": p.config.MaxTokens,
		"system":     system,
		"messages":   messages,
		"stream":     true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set(anthropicVersionHeader, anthropicVersionValue)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.LLM().Error("Provider returned non-OK status",
			"status", resp.StatusCode, "detail", string(detail))
		return nil, fmt.Errorf("provider status %d", resp.StatusCode)
	}

	p.logger.LLM().Debug("Provider stream opened",
		"model", p.config.Model, "turns", len(turns), "duration", time.Since(start))

	out := make(chan StreamChunk)
	go p.streamResponse(ctx, resp.Body, out)
	return out, nil
}

// send delivers a chunk unless the context is cancelled first. The consumer
// may stop receiving at any point, so every send must stay cancelable or the
// streaming goroutine wedges on an abandoned channel.
func send(ctx context.Context, out chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// streamResponse reads the SSE stream and forwards text deltas.
func (p *ClaudeProvider) streamResponse(ctx context.Context, body io.ReadCloser, out chan<- StreamChunk) {
	defer close(out)
	defer body.Close()

	scanner := NewSSEScanner(body)
	accumulated := ""

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			send(ctx, out, StreamChunk{Content: accumulated, Err: ctx.Err()})
			return
		default:
		}

		data := scanner.Data()

		var baseEvent struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(data), &baseEvent); err != nil {
			// Skip malformed events.
			continue
		}

		switch baseEvent.Type {
		case "content_block_delta":
			var deltaEvent struct {
				Delta *struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"delta,omitempty"`
			}
			if err := json.Unmarshal([]byte(data), &deltaEvent); err != nil {
				continue
			}
			if deltaEvent.Delta == nil || deltaEvent.Delta.Type != "text_delta" {
				continue
			}
			accumulated += deltaEvent.Delta.Text
			if !send(ctx, out, StreamChunk{Delta: deltaEvent.Delta.Text, Content: accumulated}) {
				return
			}

		case "message_stop":
			send(ctx, out, StreamChunk{Content: accumulated, Done: true})
			return

		case "error":
			var errEvent struct {
				Error *struct {
					Message string `json:"message"`
				} `json:"error,omitempty"`
			}
			msg := "provider stream error"
			if err := json.Unmarshal([]byte(data), &errEvent); err == nil && errEvent.Error != nil {
				msg = errEvent.Error.Message
			}
			send(ctx, out, StreamChunk{Content: accumulated, Err: fmt.Errorf("%s", msg)})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		send(ctx, out, StreamChunk{Content: accumulated, Err: err})
	}
}
