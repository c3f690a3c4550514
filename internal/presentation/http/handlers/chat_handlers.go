// Package handlers provides HTTP handlers for the chat gateway.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hutfut/joshbot-go/internal/application/services"
	"github.com/hutfut/joshbot-go/internal/domain/content"
	"github.com/hutfut/joshbot-go/internal/domain/entities/chat"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/presentation/http/middleware"
)

const (
	headerResponseSource = "X-Response-Source"
	headerConversationID = "X-Conversation-ID"
)

// ChatHandlers serves the public chat endpoints.
type ChatHandlers struct {
	chatService *services.ChatService
	logger      *logging.ChanneledLogger
}

// NewChatHandlers creates chat handlers with injected dependencies.
func NewChatHandlers(chatService *services.ChatService, logger *logging.ChanneledLogger) *ChatHandlers {
	return &ChatHandlers{chatService: chatService, logger: logger}
}

type chatRequestBody struct {
	Message        string `json:"message" binding:"required"`
	VoiceID        string `json:"voiceId"`
	PersonaID      string `json:"personaId"`
	ConversationID string `json:"conversationId"`
}

// PostChat handles POST /api/v1/chat. Successful replies stream as plain
// text; the response source and conversation id travel in headers so the
// body stays a bare token stream the widget can render incrementally.
func (h *ChatHandlers) PostChat(c *gin.Context) {
	var body chatRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"response": "A message is required.",
			"source":   string(chat.SourceError),
		})
		return
	}

	outcome, err := h.chatService.HandleMessage(c.Request.Context(), services.ChatRequest{
		VisitorKey:     c.GetString(middleware.VisitorKeyContext),
		ConversationID: body.ConversationID,
		Message:        body.Message,
		VoiceID:        body.VoiceID,
		PersonaID:      body.PersonaID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header(headerResponseSource, string(outcome.Source))
	if outcome.ConversationID != "" {
		c.Header(headerConversationID, outcome.ConversationID)
	}

	switch outcome.Source {
	case chat.SourceRateLimit:
		if outcome.RetryAfter > 0 {
			c.Header("Retry-After", fmt.Sprintf("%d", int(outcome.RetryAfter.Seconds())+1))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{
			"response": outcome.Response,
			"source":   string(outcome.Source),
			"tier":     string(outcome.Tier),
		})

	case chat.SourceSessionCapped:
		c.JSON(http.StatusTooManyRequests, gin.H{
			"response": outcome.Response,
			"source":   string(outcome.Source),
		})

	case chat.SourceLLMStream:
		h.streamResponse(c, outcome.Stream)

	default:
		// Canned fallbacks are complete JSON bodies the widget renders
		// the same way as an error, keyed off the source label.
		c.JSON(http.StatusOK, gin.H{
			"response": outcome.Response,
			"source":   string(outcome.Source),
		})
	}
}

// streamResponse forwards deltas to the client, flushing each one.
func (h *ChatHandlers) streamResponse(c *gin.Context, stream <-chan string) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)
	for delta := range stream {
		if _, err := c.Writer.WriteString(delta); err != nil {
			// Client went away; drain so the pump can finish and
			// record the partial turn.
			for range stream {
			}
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

func (h *ChatHandlers) writeError(c *gin.Context, err error) {
	source := string(chat.SourceError)
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"response": "Your message is empty.", "source": source})
	case errors.Is(err, services.ErrMessageTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"response": "Your message is too long.", "source": source})
	case errors.Is(err, chat.ErrVisitorQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"response": "Too many open conversations, try again later.", "source": source})
	default:
		h.logger.Chat().Error("Chat request failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"response": "Something went wrong on my end.", "source": source})
	}
}

// GetGreeting handles GET /api/v1/chat/greeting.
func (h *ChatHandlers) GetGreeting(c *gin.Context) {
	voiceID := c.Query("voiceId")
	personaID := c.Query("personaId")

	c.JSON(http.StatusOK, gin.H{
		"greeting": h.chatService.Greeting(voiceID, personaID),
		"voiceId":  voiceID,
	})
}

// GetConfig handles GET /api/v1/chat/config, listing the voices and
// personas the widget can offer.
func (h *ChatHandlers) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"voices":       content.Voices(),
		"defaultVoice": content.DefaultVoiceID,
		"personas":     content.PersonaLabels(),
	})
}

// HealthHandlers serves the liveness surface.
type HealthHandlers struct {
	healthService *services.SysOpService
	startedAt     time.Time
	durable       bool
}

// NewHealthHandlers creates the health handler.
func NewHealthHandlers(sysop *services.SysOpService, durableAdmission bool) *HealthHandlers {
	return &HealthHandlers{
		healthService: sysop,
		startedAt:     time.Now().UTC(),
		durable:       durableAdmission,
	}
}

// GetHealth handles GET /api/v1/health. Degraded modes (local-only
// admission, provider unconfigured) are reported, not failed.
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	stats, err := h.healthService.GatewayStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"status": "degraded",
			"error":  "store summary unavailable",
			"uptime": time.Since(h.startedAt).String(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"uptime":            time.Since(h.startedAt).String(),
		"store":             stats.Store,
		"providerAvailable": stats.ProviderAvailable,
		"durableAdmission":  h.durable,
	})
}
