package admission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
)

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string) (Result, error) {
	return Result{}, errors.New("connection refused")
}

type allowAllLimiter struct{ calls int }

func (l *allowAllLimiter) Check(context.Context, string) (Result, error) {
	l.calls++
	return Result{Allowed: true, Durable: true}, nil
}

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(nil)
	require.NoError(t, err)
	return logger
}

func TestControllerPrefersDurableLimiter(t *testing.T) {
	durable := &allowAllLimiter{}
	local := NewMemoryLimiter(testLimits())
	c := NewController(durable, local, testLogger(t))

	result := c.Check(context.Background(), "visitor-a")
	assert.True(t, result.Allowed)
	assert.True(t, result.Durable)
	assert.Equal(t, 1, durable.calls)
	assert.Equal(t, 0, local.VisitorCount(), "local limiter must stay untouched")
}

func TestControllerFallsBackOnDurableError(t *testing.T) {
	local := NewMemoryLimiter(testLimits())
	c := NewController(failingLimiter{}, local, testLogger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := c.Check(ctx, "visitor-a")
		assert.True(t, result.Allowed)
		assert.False(t, result.Durable)
	}

	result := c.Check(ctx, "visitor-a")
	assert.False(t, result.Allowed)
	assert.Equal(t, TierBurst, result.Tier)
}

func TestControllerWithoutDurableStore(t *testing.T) {
	c := NewController(nil, NewMemoryLimiter(testLimits()), testLogger(t))

	result := c.Check(context.Background(), "visitor-a")
	assert.True(t, result.Allowed)
	assert.False(t, result.Durable)
	assert.False(t, c.Durable())
}
