// Package audit persists security incidents so flagged injections and leak
// stops can be reviewed after the fact. Writes are best effort; the request
// path never waits on or fails because of the audit trail.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/infrastructure/persistence/database"
	"github.com/hutfut/joshbot-go/internal/infrastructure/security"
)

// Incident kinds.
const (
	KindInjection = "injection"
	KindLeak      = "leak"
)

// Incident is one recorded security event.
type Incident struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	ConversationID string    `json:"conversationId"`
	VisitorKey     string    `json:"visitorKey"`
	Detail         string    `json:"detail"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Repository stores incidents in the audit database.
type Repository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewRepository creates the repository and ensures the schema exists.
func NewRepository(db *database.DB, logger *logging.ChanneledLogger) (*Repository, error) {
	r := &Repository{db: db, logger: logger}
	if err := r.ensureSchema(); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return r, nil
}

func (r *Repository) ensureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS security_incidents (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			visitor_key TEXT NOT NULL,
			detail TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`)
	return err
}

// RecordInjection stores flagged injection labels for a visitor message.
func (r *Repository) RecordInjection(ctx context.Context, conversationID, visitorKey string, labels []string) {
	r.insert(ctx, KindInjection, conversationID, visitorKey, strings.Join(labels, ","))
}

// RecordLeak stores a leak stop with the marker that matched.
func (r *Repository) RecordLeak(ctx context.Context, conversationID, visitorKey, marker string) {
	r.insert(ctx, KindLeak, conversationID, visitorKey, marker)
}

func (r *Repository) insert(ctx context.Context, kind, conversationID, visitorKey, detail string) {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO security_incidents (id, kind, conversation_id, visitor_key, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		security.GenerateULID(), kind, conversationID, visitorKey, detail, time.Now().UTC())
	if err != nil {
		r.logger.Database().Error("Failed to record security incident",
			"kind", kind, "conversationId", logging.MaskID(conversationID), "error", err.Error())
		return
	}
	r.logger.Database().Debug("Security incident recorded",
		"kind", kind, "conversationId", logging.MaskID(conversationID), "duration", time.Since(start))
}

// ListRecent returns the newest incidents, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Incident, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, conversation_id, visitor_key, detail, created_at
		 FROM security_incidents ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		var inc Incident
		if err := rows.Scan(&inc.ID, &inc.Kind, &inc.ConversationID, &inc.VisitorKey, &inc.Detail, &inc.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// Count returns how many incidents of each kind are stored.
func (r *Repository) Count(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM security_incidents GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("audit count: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("audit count scan: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
