package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/interfaces"
	"github.com/hutfut/joshbot-go/internal/infrastructure/llm"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/infrastructure/persistence/audit"
	"github.com/hutfut/joshbot-go/internal/infrastructure/security"
)

// ErrBadCredentials is returned for a wrong password or missing hash.
var ErrBadCredentials = errors.New("invalid credentials")

// SysOpService backs the operator endpoints: login, runtime log levels,
// incident review, and gateway stats.
type SysOpService struct {
	passwordHash string
	jwtSecret    string
	tokenTTL     time.Duration
	store        interfaces.ConversationStore
	auditRepo    *audit.Repository
	provider     llm.Provider
	logger       *logging.ChanneledLogger
}

// NewSysOpService creates a new sysop service with injected dependencies.
func NewSysOpService(
	passwordHash, jwtSecret string,
	tokenTTL time.Duration,
	store interfaces.ConversationStore,
	auditRepo *audit.Repository,
	provider llm.Provider,
	logger *logging.ChanneledLogger,
) *SysOpService {
	return &SysOpService{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
		store:        store,
		auditRepo:    auditRepo,
		provider:     provider,
		logger:       logger,
	}
}

// Enabled reports whether the operator surface is configured.
func (s *SysOpService) Enabled() bool {
	return s.passwordHash != "" && s.jwtSecret != ""
}

// Login verifies the operator password and issues a session token.
func (s *SysOpService) Login(password string) (string, error) {
	if !s.Enabled() {
		return "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		s.logger.Security().Warn("Failed sysop login attempt")
		return "", ErrBadCredentials
	}

	token, err := security.GenerateSysOpToken(s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.logger.Security().Info("Sysop login succeeded")
	return token, nil
}

// ValidateToken checks a bearer token from the operator endpoints.
func (s *SysOpService) ValidateToken(token string) error {
	if _, err := security.ValidateJWT(token, s.jwtSecret); err != nil {
		return err
	}
	return nil
}

// GetLogLevels returns the current level of every logging channel.
func (s *SysOpService) GetLogLevels() map[string]string {
	return s.logger.GetChannelLevels()
}

// SetLogLevel adjusts one channel's level at runtime.
func (s *SysOpService) SetLogLevel(channel, level string) error {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("unknown level %q", level)
	}
	return s.logger.SetChannelLevel(logging.Channel(channel), slogLevel)
}

// RecentIncidents lists the newest audit entries.
func (s *SysOpService) RecentIncidents(ctx context.Context, limit int) ([]audit.Incident, error) {
	if s.auditRepo == nil {
		return nil, nil
	}
	return s.auditRepo.ListRecent(ctx, limit)
}

// Stats summarizes gateway state for the operator dashboard.
type Stats struct {
	Store             interfaces.StoreSummary `json:"store"`
	Incidents         map[string]int          `json:"incidents,omitempty"`
	ProviderAvailable bool                    `json:"providerAvailable"`
}

// GatewayStats collects the dashboard summary.
func (s *SysOpService) GatewayStats(ctx context.Context) (Stats, error) {
	summary, err := s.store.Summary(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("store summary: %w", err)
	}

	stats := Stats{
		Store:             summary,
		ProviderAvailable: s.provider.Available(),
	}
	if s.auditRepo != nil {
		counts, err := s.auditRepo.Count(ctx)
		if err != nil {
			s.logger.Database().Warn("Failed to count incidents for stats", "error", err.Error())
		} else {
			stats.Incidents = counts
		}
	}
	return stats, nil
}
