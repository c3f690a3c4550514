package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/infrastructure/persistence/database"
)

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	logger, err := logging.NewChanneledLogger(nil)
	require.NoError(t, err)

	db, err := database.NewConnection(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db, logger)
	require.NoError(t, err)
	return repo
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, "libsql", database.DriverFor("libsql://joshbot.turso.io"))
	assert.Equal(t, "libsql", database.DriverFor("wss://joshbot.turso.io"))
	assert.Equal(t, "sqlite3", database.DriverFor("audit.db"))
	assert.Equal(t, "sqlite3", database.DriverFor(":memory:"))
}

func TestRecordAndListIncidents(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	repo.RecordInjection(ctx, "conv-1", "visitor-a", []string{"instruction-override", "mode-switch"})
	repo.RecordLeak(ctx, "conv-2", "visitor-b", "JBOT-7X9K2-CANARY")

	incidents, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 2)

	kinds := []string{incidents[0].Kind, incidents[1].Kind}
	assert.Contains(t, kinds, KindInjection)
	assert.Contains(t, kinds, KindLeak)

	for _, inc := range incidents {
		if inc.Kind == KindInjection {
			assert.Equal(t, "instruction-override,mode-switch", inc.Detail)
			assert.Equal(t, "conv-1", inc.ConversationID)
		}
	}

	counts, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[KindInjection])
	assert.Equal(t, 1, counts[KindLeak])
}

func TestListRecentClampsLimit(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	repo.RecordInjection(ctx, "conv-1", "visitor-a", []string{"jailbreak"})

	incidents, err := repo.ListRecent(ctx, -5)
	require.NoError(t, err)
	assert.Len(t, incidents, 1)
}
