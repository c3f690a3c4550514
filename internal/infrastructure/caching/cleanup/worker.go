// Package cleanup provides the background sweep worker.
package cleanup

import (
	"context"
	"time"

	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/interfaces"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
)

// LimiterSweeper is implemented by the in-process rate limiter so its stale
// visitor windows are reclaimed alongside expired conversations.
type LimiterSweeper interface {
	SweepExpired(now time.Time) int
}

// Worker periodically sweeps expired conversations and stale limiter
// records. Expiry is idempotent; a sweep that finds nothing is a no-op.
type Worker struct {
	store   interfaces.ConversationStore
	limiter LimiterSweeper
	config  *Config
	logger  *logging.ChanneledLogger
}

// NewWorker creates a cleanup worker.
func NewWorker(store interfaces.ConversationStore, limiter LimiterSweeper, config *Config, logger *logging.ChanneledLogger) *Worker {
	return &Worker{store: store, limiter: limiter, config: config, logger: logger}
}

// Start runs the sweep loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.logger.System().Info("Cleanup worker started",
		"interval", w.config.Interval, "verbose", w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown().Info("Cleanup worker stopping")
			return
		case <-ticker.C:
			w.performSweep(ctx)
		}
	}
}

// performSweep runs one sweep pass.
func (w *Worker) performSweep(ctx context.Context) {
	start := time.Now()
	now := time.Now().UTC()

	conversations, err := w.store.SweepExpired(ctx, now)
	if err != nil {
		w.logger.Cache().Error("Conversation sweep failed", "error", err.Error())
	}

	limiterRecords := 0
	if w.limiter != nil {
		limiterRecords = w.limiter.SweepExpired(now)
	}

	duration := time.Since(start)
	if conversations > 0 || limiterRecords > 0 {
		w.logger.Cache().Info("Sweep finished",
			"conversations", conversations, "limiterRecords", limiterRecords, "duration", duration)
	} else if w.config.VerboseReporting {
		w.logger.Cache().Debug("Sweep completed, nothing expired", "duration", duration)
	}
}
