// Package admission decides whether a visitor request may proceed, enforcing
// a short burst ceiling and a rolling daily ceiling per visitor key.
package admission

import (
	"context"
	"time"
)

// Tier identifies which ceiling a decision was made against.
type Tier string

const (
	// TierBurst is the short anti-hammering window.
	TierBurst Tier = "burst"
	// TierDaily is the rolling 24-hour allowance.
	TierDaily Tier = "daily"
)

// Result is the outcome of an admission check.
type Result struct {
	Allowed bool
	// Tier is the ceiling that denied the request. Only set when
	// Allowed is false.
	Tier Tier
	// RetryAfter is a client hint for when the denied tier frees up.
	RetryAfter time.Duration
	// Durable reports whether the decision came from the shared
	// durable store rather than the local in-process fallback.
	Durable bool
}

// Limiter answers admission checks for a visitor key. A denied check must
// not consume allowance from any tier the visitor did not pass.
type Limiter interface {
	Check(ctx context.Context, visitorKey string) (Result, error)
}

// Limits carries the two ceilings and their windows.
type Limits struct {
	BurstLimit  int
	BurstWindow time.Duration
	DailyLimit  int
	DailyWindow time.Duration
}
