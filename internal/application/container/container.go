// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hutfut/joshbot-go/internal/application/services"
	"github.com/hutfut/joshbot-go/internal/infrastructure/admission"
	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/interfaces"
	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/stores"
	"github.com/hutfut/joshbot-go/internal/infrastructure/email"
	"github.com/hutfut/joshbot-go/internal/infrastructure/llm"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/infrastructure/persistence/audit"
	"github.com/hutfut/joshbot-go/internal/infrastructure/persistence/conversations"
	"github.com/hutfut/joshbot-go/internal/infrastructure/persistence/database"
	"github.com/hutfut/joshbot-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies.
type Container struct {
	// Application services
	ChatService   *services.ChatService
	PromptService *services.PromptService
	SysOpService  *services.SysOpService

	// Infrastructure
	Logger            *logging.ChanneledLogger
	AdmissionCtrl     *admission.Controller
	ConversationStore interfaces.ConversationStore
	MemoryLimiter     *admission.MemoryLimiter
	AuditRepository   *audit.Repository
	Provider          llm.Provider

	// DurableAdmission reports whether a shared store backs admission
	// and conversations; false means in-process fallback mode.
	DurableAdmission bool

	redisClient *redis.Client
	auditDB     *database.DB
}

// NewContainer creates and wires all singleton services. A missing redis or
// audit database degrades to in-process operation rather than failing.
func NewContainer(logger *logging.ChanneledLogger) (*Container, error) {
	c := &Container{Logger: logger}

	limits := admission.Limits{
		BurstLimit:  config.BurstLimit,
		BurstWindow: config.BurstWindow,
		DailyLimit:  config.DailyLimit,
		DailyWindow: config.DailyWindow,
	}
	conversationLimits := interfaces.ConversationLimits{
		MaxConversationsPerVisitor: config.MaxConversationsPerVisitor,
		MaxStoredTurns:             config.MaxStoredTurns,
		VisitorTurnLimit:           config.VisitorTurnLimit,
		TTL:                        config.ConversationTTL,
	}

	c.MemoryLimiter = admission.NewMemoryLimiter(limits)

	var durableLimiter admission.Limiter
	if config.RedisURL != "" {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		c.redisClient = redis.NewClient(opts)
		durableLimiter = admission.NewRedisLimiter(c.redisClient, limits)
		c.ConversationStore = conversations.NewRedisStore(c.redisClient, conversationLimits, logger)
		c.DurableAdmission = true
	} else {
		logger.Startup().Info("No redis configured, using in-process admission and conversation store")
		c.ConversationStore = stores.NewConversationsStore(conversationLimits, logger)
	}

	c.AdmissionCtrl = admission.NewController(durableLimiter, c.MemoryLimiter, logger)

	if config.AuditDBURL != "" {
		db, err := database.NewConnection(config.AuditDBURL, logger)
		if err != nil {
			return nil, fmt.Errorf("audit database: %w", err)
		}
		c.auditDB = db
		repo, err := audit.NewRepository(db, logger)
		if err != nil {
			return nil, fmt.Errorf("audit repository: %w", err)
		}
		c.AuditRepository = repo
	} else {
		logger.Startup().Info("No audit database configured, incidents are log-only")
	}

	c.Provider = llm.NewClaudeProvider(llm.ClaudeConfig{
		APIKey:    config.AnthropicAPIKey,
		BaseURL:   config.AnthropicBaseURL,
		Model:     config.LLMModel,
		MaxTokens: config.LLMMaxTokens,
		Timeout:   config.LLMTimeout,
	}, logger)

	alerts := email.NewService(config.ResendAPIKey, config.AlertEmailFrom, config.AlertEmailTo, logger)

	c.PromptService = services.NewPromptService()
	c.ChatService = services.NewChatService(
		c.AdmissionCtrl,
		c.ConversationStore,
		c.PromptService,
		c.Provider,
		c.AuditRepository,
		alerts,
		services.ChatConfig{
			MaxMessageChars: config.MaxMessageChars,
			HistoryTurns:    config.HistoryTurns,
		},
		logger,
	)
	c.SysOpService = services.NewSysOpService(
		config.SysOpPasswordHash,
		config.JWTSecret,
		config.SysOpTokenTTL,
		c.ConversationStore,
		c.AuditRepository,
		c.Provider,
		logger,
	)

	return c, nil
}

// Close releases the container's long-lived connections.
func (c *Container) Close() error {
	var firstErr error
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			firstErr = err
		}
	}
	if c.auditDB != nil {
		if err := c.auditDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
