package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hutfut/joshbot-go/internal/domain/entities/chat"
	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/interfaces"
)

func testStore(t *testing.T) *ConversationsStore {
	t.Helper()
	return NewConversationsStore(interfaces.ConversationLimits{
		MaxConversationsPerVisitor: 2,
		MaxStoredTurns:             6,
		VisitorTurnLimit:           3,
		TTL:                        time.Hour,
	}, nil)
}

func TestCreateEnforcesVisitorQuota(t *testing.T) {
	cs := testStore(t)
	ctx := context.Background()

	_, err := cs.Create(ctx, "visitor-a", "josh-4o", "")
	require.NoError(t, err)
	_, err = cs.Create(ctx, "visitor-a", "josh-4o", "recruiter")
	require.NoError(t, err)

	_, err = cs.Create(ctx, "visitor-a", "josh-4o", "")
	assert.ErrorIs(t, err, chat.ErrVisitorQuotaExceeded)

	// Other visitors are unaffected.
	_, err = cs.Create(ctx, "visitor-b", "josh-4o", "")
	assert.NoError(t, err)
}

func TestGetEnforcesOwnership(t *testing.T) {
	cs := testStore(t)
	ctx := context.Background()

	conv, err := cs.Create(ctx, "visitor-a", "josh-4o", "")
	require.NoError(t, err)

	got, err := cs.Get(ctx, conv.ID, "visitor-a")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = cs.Get(ctx, conv.ID, "visitor-b")
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)

	_, err = cs.Get(ctx, "no-such-id", "visitor-a")
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
}

func TestVisitorTurnCap(t *testing.T) {
	cs := testStore(t)
	ctx := context.Background()

	conv, err := cs.Create(ctx, "visitor-a", "josh-4o", "")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		updated, err := cs.AppendVisitorTurn(ctx, conv.ID, "visitor-a", "hello")
		require.NoError(t, err)
		assert.False(t, updated.Capped)
	}

	// The turn that reaches the ceiling is still recorded.
	updated, err := cs.AppendVisitorTurn(ctx, conv.ID, "visitor-a", "third")
	require.NoError(t, err)
	assert.True(t, updated.Capped)
	assert.Equal(t, 3, updated.VisitorTurnCount)

	_, err = cs.AppendVisitorTurn(ctx, conv.ID, "visitor-a", "fourth")
	assert.ErrorIs(t, err, chat.ErrConversationCapped)

	// Assistant turns are still accepted after the cap.
	err = cs.AppendAssistantTurn(ctx, conv.ID, "visitor-a", "reply")
	assert.NoError(t, err)
}

func TestStoredTurnWindowTrimsOldestFirst(t *testing.T) {
	cs := testStore(t)
	ctx := context.Background()

	conv, err := cs.Create(ctx, "visitor-a", "josh-4o", "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := cs.AppendVisitorTurn(ctx, conv.ID, "visitor-a", "question")
		require.NoError(t, err)
		require.NoError(t, cs.AppendAssistantTurn(ctx, conv.ID, "visitor-a", "answer"))
	}
	// MaxStoredTurns is 6; two more assistant turns push out the oldest.
	require.NoError(t, cs.AppendAssistantTurn(ctx, conv.ID, "visitor-a", "followup-1"))
	require.NoError(t, cs.AppendAssistantTurn(ctx, conv.ID, "visitor-a", "followup-2"))

	got, err := cs.Get(ctx, conv.ID, "visitor-a")
	require.NoError(t, err)
	assert.Len(t, got.Turns, 6)
	assert.Equal(t, chat.RoleAssistant, got.Turns[0].Role, "oldest visitor turn should have been dropped")
	assert.Equal(t, "followup-2", got.Turns[5].Text)
}

func TestExpiryEvictsAndFreesQuota(t *testing.T) {
	cs := testStore(t)
	ctx := context.Background()

	current := time.Now()
	cs.now = func() time.Time { return current }

	a, err := cs.Create(ctx, "visitor-a", "josh-4o", "")
	require.NoError(t, err)
	_, err = cs.Create(ctx, "visitor-a", "josh-4o", "")
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	// Expired conversations read as not found.
	_, err = cs.Get(ctx, a.ID, "visitor-a")
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)

	// And no longer count against the quota.
	_, err = cs.Create(ctx, "visitor-a", "josh-4o", "")
	assert.NoError(t, err)
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	cs := testStore(t)
	ctx := context.Background()

	_, err := cs.Create(ctx, "visitor-a", "josh-4o", "")
	require.NoError(t, err)
	_, err = cs.Create(ctx, "visitor-b", "josh-4o-mini", "")
	require.NoError(t, err)

	removed, err := cs.SweepExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = cs.SweepExpired(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = cs.SweepExpired(ctx, time.Now().Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	summary, err := cs.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Conversations)
	assert.Equal(t, 0, summary.Visitors)
}
