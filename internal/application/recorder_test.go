package application

import (
	"testing"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderEmptyStats(t *testing.T) {
	t.Parallel()

	stats := NewRecorder().Stats()

	assert.Zero(t, stats.TotalActions)
	assert.Zero(t, stats.SuccessfulActions)
	assert.Zero(t, stats.OverallSuccessRate)
	assert.NotNil(t, stats.ByType)
	assert.Empty(t, stats.ByType)
	assert.True(t, stats.LastAction.IsZero())
}

func TestRecorderCountsUseStrictWindows(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	recorder := NewRecorder()
	recorder.Record(domain.ActionRecord{Type: domain.ActionLike, Timestamp: now.Add(-time.Hour), Success: true})
	recorder.Record(domain.ActionRecord{Type: domain.ActionLike, Timestamp: now.Add(-59 * time.Minute), Success: true})
	recorder.Record(domain.ActionRecord{Type: domain.ActionLike, Timestamp: now.Add(-24 * time.Hour), Success: true})
	recorder.Record(domain.ActionRecord{Type: domain.ActionFollow, Timestamp: now.Add(-time.Minute), Success: false, Error: "boom"})

	assert.Equal(t, 1, recorder.HourlyCount(domain.ActionLike, now))
	assert.Equal(t, 2, recorder.DailyCount(domain.ActionLike, now))
	assert.Equal(t, 1, recorder.HourlyCount(domain.ActionFollow, now))
	assert.Zero(t, recorder.HourlyCount(domain.ActionPost, now))
	assert.Equal(t, 3, recorder.TotalSince(now.Add(-24*time.Hour)))
	assert.Equal(t, 1, recorder.FailuresSince(now.Add(-time.Hour)))
}

func TestRecorderStats(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	recorder := NewRecorder()
	recorder.Record(domain.ActionRecord{Type: domain.ActionLike, Timestamp: now.Add(-3 * time.Minute), Success: true})
	recorder.Record(domain.ActionRecord{Type: domain.ActionLike, Timestamp: now.Add(-2 * time.Minute), Success: false, Error: "boom"})
	recorder.Record(domain.ActionRecord{Type: domain.ActionFollow, Timestamp: now.Add(-time.Minute), Success: true})
	recorder.Record(domain.ActionRecord{Type: domain.ActionFollow, Timestamp: now, Success: true})

	stats := recorder.Stats()

	assert.Equal(t, 4, stats.TotalActions)
	assert.Equal(t, 3, stats.SuccessfulActions)
	assert.InDelta(t, 75.0, stats.OverallSuccessRate, 0.001)
	assert.Equal(t, domain.TypeStats{Total: 2, Successful: 1, SuccessRate: 50}, stats.ByType[domain.ActionLike])
	assert.Equal(t, domain.TypeStats{Total: 2, Successful: 2, SuccessRate: 100}, stats.ByType[domain.ActionFollow])
	assert.Equal(t, now, stats.LastAction)
}

func TestRecorderSeed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	older := domain.ActionRecord{Type: domain.ActionLike, Timestamp: now.Add(-2 * time.Hour), Success: true}
	newer := domain.ActionRecord{Type: domain.ActionPost, Timestamp: now.Add(-time.Hour), Success: true}

	recorder := NewRecorder()
	require.NoError(t, recorder.Seed([]domain.ActionRecord{newer, older}))

	assert.Equal(t, []domain.ActionRecord{older, newer}, recorder.Actions())
	last, ok := recorder.Last()
	require.True(t, ok)
	assert.Equal(t, newer, last)

	require.Error(t, recorder.Seed([]domain.ActionRecord{older}))
}

func TestRecorderActionsReturnsCopy(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder()
	_, ok := recorder.Last()
	assert.False(t, ok)

	recorder.Record(domain.ActionRecord{Type: domain.ActionLike, Success: true})
	actions := recorder.Actions()
	actions[0].Type = domain.ActionPost

	assert.Equal(t, domain.ActionLike, recorder.Actions()[0].Type)
}
