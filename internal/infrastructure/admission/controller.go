package admission

import (
	"context"

	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
)

// Controller is the limiter the gateway talks to. It prefers the durable
// limiter when one is configured and falls back to the local limiter on
// store errors, so admission never fails open or closed because the shared
// store is unreachable.
type Controller struct {
	durable Limiter
	local   *MemoryLimiter
	logger  *logging.ChanneledLogger
}

// NewController wires the fallback chain. durable may be nil when no shared
// store is configured; the controller then runs on the local limiter alone.
func NewController(durable Limiter, local *MemoryLimiter, logger *logging.ChanneledLogger) *Controller {
	return &Controller{durable: durable, local: local, logger: logger}
}

// Check runs the admission decision. Errors from the durable store are
// logged and absorbed; the caller always gets a usable decision.
func (c *Controller) Check(ctx context.Context, visitorKey string) Result {
	if c.durable != nil {
		result, err := c.durable.Check(ctx, visitorKey)
		if err == nil {
			return result
		}
		c.logger.Admission().Warn("Durable limiter unavailable, using local fallback",
			"visitorKey", logging.MaskID(visitorKey), "error", err.Error())
	}

	result, err := c.local.Check(ctx, visitorKey)
	if err != nil {
		// The memory limiter cannot fail today; guard the invariant
		// anyway so a future implementation cannot fail open.
		c.logger.Admission().Error("Local limiter error, denying request",
			"visitorKey", logging.MaskID(visitorKey), "error", err.Error())
		return Result{Tier: TierBurst}
	}
	return result
}

// Durable reports whether a shared store is configured.
func (c *Controller) Durable() bool {
	return c.durable != nil
}
