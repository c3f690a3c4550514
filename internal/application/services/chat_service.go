package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hutfut/joshbot-go/internal/domain/content"
	"github.com/hutfut/joshbot-go/internal/domain/entities/chat"
	"github.com/hutfut/joshbot-go/internal/infrastructure/admission"
	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/interfaces"
	"github.com/hutfut/joshbot-go/internal/infrastructure/email"
	"github.com/hutfut/joshbot-go/internal/infrastructure/llm"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/infrastructure/persistence/audit"
	"github.com/hutfut/joshbot-go/internal/infrastructure/security"
)

// Validation errors surfaced to the transport layer.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
)

// ChatRequest is one visitor message entering the gateway.
type ChatRequest struct {
	VisitorKey     string
	ConversationID string
	Message        string
	VoiceID        string
	PersonaID      string
}

// ChatOutcome is the gateway's decision for one request. Exactly one of
// Response and Stream is populated: canned outcomes carry the full text in
// Response, a live model reply arrives as deltas on Stream.
type ChatOutcome struct {
	Source         chat.ResponseSource
	ConversationID string
	Response       string
	Stream         <-chan string
	Tier           admission.Tier
	RetryAfter     time.Duration
}

// ChatConfig carries the request-path limits the service enforces.
type ChatConfig struct {
	MaxMessageChars int
	HistoryTurns    int
}

// ChatService runs a visitor message through admission, validation,
// conversation resolution, prompt assembly, the model call, and the output
// leak guard, in that order. Every response carries a source label so the
// widget can tell a live model reply from canned copy.
type ChatService struct {
	admission *admission.Controller
	store     interfaces.ConversationStore
	prompts   *PromptService
	provider  llm.Provider
	guard     *security.LeakGuard
	audit     *audit.Repository
	alerts    email.Service
	config    ChatConfig
	logger    *logging.ChanneledLogger
}

// NewChatService wires the gateway. audit and alerts may be nil; both are
// best-effort side channels.
func NewChatService(
	admissionCtrl *admission.Controller,
	store interfaces.ConversationStore,
	prompts *PromptService,
	provider llm.Provider,
	auditRepo *audit.Repository,
	alerts email.Service,
	config ChatConfig,
	logger *logging.ChanneledLogger,
) *ChatService {
	return &ChatService{
		admission: admissionCtrl,
		store:     store,
		prompts:   prompts,
		provider:  provider,
		guard:     security.NewLeakGuard(prompts.LeakMarkers()),
		audit:     auditRepo,
		alerts:    alerts,
		config:    config,
		logger:    logger,
	}
}

// HandleMessage processes one visitor message end to end. A non-nil error
// means the request was malformed or the store failed; every policy outcome
// (rate limited, capped, provider down) is a normal ChatOutcome instead.
func (s *ChatService) HandleMessage(ctx context.Context, req ChatRequest) (*ChatOutcome, error) {
	start := time.Now()

	// Admission runs before any validation or store work so denied
	// visitors cost nothing.
	decision := s.admission.Check(ctx, req.VisitorKey)
	if !decision.Allowed {
		return s.denyRateLimited(req, decision), nil
	}

	message, flags, err := s.validate(req.Message)
	if err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	if flags.Flagged {
		s.logger.LogInjectionFlags(conv.ID, flags.Labels)
		if s.audit != nil {
			s.audit.RecordInjection(ctx, conv.ID, req.VisitorKey, flags.Labels)
		}
	}

	conv, err = s.store.AppendVisitorTurn(ctx, conv.ID, req.VisitorKey, message)
	if errors.Is(err, chat.ErrConversationCapped) {
		return &ChatOutcome{
			Source:         chat.SourceSessionCapped,
			ConversationID: req.ConversationID,
			Response:       content.SessionCappedResponse,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	system := s.prompts.Assemble(conv.VoiceID, conv.PersonaID)
	history := modelHistory(conv.Recent(s.config.HistoryTurns))

	if !s.provider.Available() {
		return s.cannedReply(ctx, conv, chat.SourceLLMUnavailable, content.RandomLLMUnavailableFallback()), nil
	}

	streamCtx, cancelStream := context.WithCancel(ctx)
	chunks, err := s.provider.Stream(streamCtx, system, history)
	if err != nil {
		cancelStream()
		s.logger.LLM().Warn("Provider invocation failed, serving fallback",
			"conversationId", logging.MaskID(conv.ID), "error", err.Error())
		return s.cannedReply(ctx, conv, chat.SourceLLMUnavailable, content.RandomLLMUnavailableFallback()), nil
	}

	out := make(chan string)
	go s.pumpGuarded(conv, chunks, out, cancelStream)

	s.logger.Chat().Info("Chat request admitted",
		"conversationId", logging.MaskID(conv.ID), "voiceId", conv.VoiceID,
		"visitorTurns", conv.VisitorTurnCount, "flagged", flags.Flagged,
		"durable", decision.Durable, "duration", time.Since(start))

	return &ChatOutcome{
		Source:         chat.SourceLLMStream,
		ConversationID: conv.ID,
		Stream:         out,
	}, nil
}

// Greeting returns the canned opener for a voice, or the persona welcome
// when a persona is selected.
func (s *ChatService) Greeting(voiceID, personaID string) string {
	if personaID != "" {
		if welcome := content.PersonaWelcome(voiceID, personaID); welcome != "" {
			return welcome
		}
	}
	return content.Greeting(voiceID)
}

func (s *ChatService) denyRateLimited(req ChatRequest, decision admission.Result) *ChatOutcome {
	s.logger.Admission().Info("Request rate limited",
		"visitorKey", logging.MaskID(req.VisitorKey), "tier", string(decision.Tier),
		"durable", decision.Durable)

	response := content.BurstLimitResponse
	if decision.Tier == admission.TierDaily {
		response = content.DailyLimitResponse
	}
	return &ChatOutcome{
		Source:         chat.SourceRateLimit,
		ConversationID: req.ConversationID,
		Response:       response,
		Tier:           decision.Tier,
		RetryAfter:     decision.RetryAfter,
	}
}

// validate normalizes the message and scans it for injection patterns.
// Flags are advisory; only emptiness and length reject a request.
func (s *ChatService) validate(message string) (string, security.SanitizeResult, error) {
	result := security.SanitizeInput(message)
	normalized := strings.TrimSpace(result.Normalized)
	if normalized == "" {
		return "", result, ErrEmptyMessage
	}
	if len([]rune(normalized)) > s.config.MaxMessageChars {
		return "", result, ErrMessageTooLong
	}
	return normalized, result, nil
}

// resolveConversation loads the visitor's conversation or starts a new one.
// A stale or foreign id silently becomes a fresh conversation; the new id in
// the response tells the widget to resync.
func (s *ChatService) resolveConversation(ctx context.Context, req ChatRequest) (*chat.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.store.Get(ctx, req.ConversationID, req.VisitorKey)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, chat.ErrConversationNotFound) {
			return nil, err
		}
	}

	voiceID := req.VoiceID
	if !content.KnownVoice(voiceID) {
		voiceID = content.DefaultVoiceID
	}
	personaID := req.PersonaID
	if _, ok := content.GetPersona(personaID); !ok {
		personaID = ""
	}
	return s.store.Create(ctx, req.VisitorKey, voiceID, personaID)
}

// cannedReply records a canned assistant turn and returns it as the outcome.
func (s *ChatService) cannedReply(ctx context.Context, conv *chat.Conversation, source chat.ResponseSource, text string) *ChatOutcome {
	if err := s.store.AppendAssistantTurn(ctx, conv.ID, conv.VisitorKey, text); err != nil {
		s.logger.Chat().Error("Failed to record canned assistant turn",
			"conversationId", logging.MaskID(conv.ID), "error", err.Error())
	}
	return &ChatOutcome{
		Source:         source,
		ConversationID: conv.ID,
		Response:       text,
	}
}

// pumpGuarded forwards model deltas to the client channel with the leak
// guard checking the accumulated buffer before each forward. On a match the
// triggering chunk is withheld, the recovery sentence is sent, the in-flight
// model call is cancelled, and the stream stops. Whatever the client actually
// received is recorded as the assistant turn, including partial output after
// a disconnect.
func (s *ChatService) pumpGuarded(conv *chat.Conversation, chunks <-chan llm.StreamChunk, out chan<- string, cancelStream context.CancelFunc) {
	var forwarded strings.Builder
	buffer := ""
	leaked := false

	for chunk := range chunks {
		if chunk.Err != nil {
			s.logger.LLM().Warn("Model stream ended with error",
				"conversationId", logging.MaskID(conv.ID), "error", chunk.Err.Error())
			break
		}
		if chunk.Delta == "" {
			continue
		}

		buffer += chunk.Delta
		if hit, markers := s.guard.Observe(buffer); hit {
			leaked = true
			s.handleLeak(conv, markers[0])
			out <- content.LeakRecoverySentence
			forwarded.WriteString(content.LeakRecoverySentence)
			break
		}

		out <- chunk.Delta
		forwarded.WriteString(chunk.Delta)
	}

	// Cancel the in-flight model call and drain whatever the provider had
	// already queued so its streaming goroutine can exit. A leak stop
	// otherwise leaves the provider blocked on an abandoned channel with
	// the response body pinned open.
	cancelStream()
	for range chunks {
	}
	close(out)

	// Recording uses a fresh context so a client disconnect cannot lose
	// the turn the model already produced.
	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if forwarded.Len() > 0 {
		if err := s.store.AppendAssistantTurn(recordCtx, conv.ID, conv.VisitorKey, forwarded.String()); err != nil {
			s.logger.Chat().Error("Failed to record assistant turn",
				"conversationId", logging.MaskID(conv.ID), "error", err.Error())
		}
	}

	if leaked {
		s.logger.Chat().Info("Stream stopped by leak guard", "conversationId", logging.MaskID(conv.ID))
	}
}

// handleLeak records and reports a leak stop through every side channel.
func (s *ChatService) handleLeak(conv *chat.Conversation, marker string) {
	s.logger.LogLeakIncident(conv.ID, marker)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.audit != nil {
		s.audit.RecordLeak(ctx, conv.ID, conv.VisitorKey, marker)
	}
	if s.alerts != nil {
		if err := s.alerts.SendLeakAlert(conv.ID, marker); err != nil {
			s.logger.Security().Error("Failed to send leak alert email", "error", err.Error())
		}
	}
}

// modelHistory prepares the transcript window for the provider. The first
// message must come from the visitor, so leading assistant turns left over
// from trimming are dropped.
func modelHistory(turns []chat.Turn) []chat.Turn {
	for len(turns) > 0 && turns[0].Role != chat.RoleVisitor {
		turns = turns[1:]
	}
	return turns
}
