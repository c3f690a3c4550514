package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hutfut/joshbot-go/internal/application/services"
	"github.com/hutfut/joshbot-go/internal/domain/entities/chat"
	"github.com/hutfut/joshbot-go/internal/infrastructure/admission"
	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/interfaces"
	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/stores"
	"github.com/hutfut/joshbot-go/internal/infrastructure/llm"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/presentation/http/middleware"
)

// scriptedProvider serves fixed deltas, or reports unavailable.
type scriptedProvider struct {
	available bool
	deltas    []string
}

func (p *scriptedProvider) Available() bool { return p.available }

func (p *scriptedProvider) Stream(ctx context.Context, _ string, _ []chat.Turn) (<-chan llm.StreamChunk, error) {
	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		accumulated := ""
		for _, delta := range p.deltas {
			accumulated += delta
			select {
			case out <- llm.StreamChunk{Delta: delta, Content: accumulated}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- llm.StreamChunk{Content: accumulated, Done: true}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func setupChatRouter(t *testing.T, provider llm.Provider, burstLimit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.NewChanneledLogger(nil)
	require.NoError(t, err)

	store := stores.NewConversationsStore(interfaces.ConversationLimits{
		MaxConversationsPerVisitor: 5,
		MaxStoredTurns:             40,
		VisitorTurnLimit:           20,
		TTL:                        time.Hour,
	}, nil)
	limiter := admission.NewMemoryLimiter(admission.Limits{
		BurstLimit:  burstLimit,
		BurstWindow: time.Minute,
		DailyLimit:  100,
		DailyWindow: 24 * time.Hour,
	})
	svc := services.NewChatService(
		admission.NewController(nil, limiter, logger),
		store, services.NewPromptService(), provider, nil, nil,
		services.ChatConfig{MaxMessageChars: 2000, HistoryTurns: 10}, logger)

	r := gin.New()
	r.Use(middleware.VisitorKey())
	h := NewChatHandlers(svc, logger)
	r.POST("/api/v1/chat", h.PostChat)
	r.GET("/api/v1/chat/greeting", h.GetGreeting)
	return r
}

func postChat(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPostChatUnavailableProviderReturnsJSONFallback(t *testing.T) {
	r := setupChatRouter(t, &scriptedProvider{available: false}, 10)

	w := postChat(t, r, `{"message": "hello"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "llm-unavailable", w.Header().Get("X-Response-Source"))
	assert.NotEmpty(t, w.Header().Get("X-Conversation-ID"))

	body := decodeBody(t, w)
	assert.Equal(t, "llm-unavailable", body["source"])
	assert.NotEmpty(t, body["response"])
}

func TestPostChatBlankMessageReturnsJSONError(t *testing.T) {
	r := setupChatRouter(t, &scriptedProvider{available: true}, 10)

	// Whitespace passes binding but fails normalization.
	w := postChat(t, r, `{"message": "   "}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "error", body["source"])
	assert.NotEmpty(t, body["response"])
}

func TestPostChatMissingMessageReturnsJSONError(t *testing.T) {
	r := setupChatRouter(t, &scriptedProvider{available: true}, 10)

	w := postChat(t, r, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "error", body["source"])
	assert.NotEmpty(t, body["response"])
}

func TestPostChatRateLimitBodyShape(t *testing.T) {
	r := setupChatRouter(t, &scriptedProvider{available: true, deltas: []string{"ok"}}, 1)

	first := postChat(t, r, `{"message": "hello"}`)
	require.Equal(t, http.StatusOK, first.Code)

	w := postChat(t, r, `{"message": "again"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	body := decodeBody(t, w)
	assert.Equal(t, "rate-limit", body["source"])
	assert.Equal(t, "burst", body["tier"])
	assert.NotEmpty(t, body["response"])
}

func TestPostChatStreamsPlainText(t *testing.T) {
	r := setupChatRouter(t, &scriptedProvider{available: true, deltas: []string{"Josh is ", "an engineer."}}, 10)

	w := postChat(t, r, `{"message": "who is josh?"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "llm-stream", w.Header().Get("X-Response-Source"))
	assert.Equal(t, "Josh is an engineer.", w.Body.String())
}