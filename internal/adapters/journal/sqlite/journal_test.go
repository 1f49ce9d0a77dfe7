package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	journal, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })
	return journal, path
}

func TestJournalAppendAndSince(t *testing.T) {
	t.Parallel()

	journal, _ := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	records := []domain.ActionRecord{
		{Type: domain.ActionLike, Timestamp: base, Success: true},
		{Type: domain.ActionFollow, Timestamp: base.Add(500 * time.Millisecond), Success: false, Error: "rate limited by platform"},
		{Type: domain.ActionLike, Timestamp: base.Add(2 * time.Second), Success: true},
	}
	// Out of order on purpose.
	require.NoError(t, journal.Append(ctx, "alice", records[2]))
	require.NoError(t, journal.Append(ctx, "alice", records[0]))
	require.NoError(t, journal.Append(ctx, "alice", records[1]))
	require.NoError(t, journal.Append(ctx, "bob", records[0]))

	got, err := journal.Since(ctx, "alice", base.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, records, got)

	got, err = journal.Since(ctx, "alice", base)
	require.NoError(t, err)
	assert.Equal(t, records[1:], got)

	got, err = journal.Since(ctx, "carol", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJournalAppendValidatesRecord(t *testing.T) {
	t.Parallel()

	journal, _ := newTestJournal(t)
	ctx := context.Background()
	now := time.Now()

	require.Error(t, journal.Append(ctx, "", domain.ActionRecord{Type: domain.ActionLike, Timestamp: now}))
	require.Error(t, journal.Append(ctx, "alice", domain.ActionRecord{Timestamp: now}))
	require.Error(t, journal.Append(ctx, "alice", domain.ActionRecord{Type: domain.ActionLike}))
}

func TestJournalPersistsAcrossReopenAndKeepsPermissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	ctx := context.Background()
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	journal, err := Open(ctx, path)
	require.NoError(t, err)
	firstRun := journal.RunID()
	require.NoError(t, journal.Append(ctx, "alice", domain.ActionRecord{Type: domain.ActionPost, Timestamp: at, Success: true}))
	require.NoError(t, journal.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.NotEqual(t, firstRun, reopened.RunID())

	got, err := reopened.Since(ctx, "alice", at.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.ActionPost, got[0].Type)

	var runID string
	require.NoError(t, reopened.db.QueryRowContext(ctx, `SELECT run_id FROM action_records`).Scan(&runID))
	assert.Equal(t, firstRun, runID)
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	t.Parallel()

	journal, _ := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, journal.db))

	var count int
	require.NoError(t, journal.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, len(migrations), count)
}

func TestJournalPrune(t *testing.T) {
	t.Parallel()

	journal, _ := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, journal.Append(ctx, "alice", domain.ActionRecord{
			Type:      domain.ActionLike,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Success:   true,
		}))
	}

	removed, err := journal.Prune(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	got, err := journal.Since(ctx, "alice", time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
