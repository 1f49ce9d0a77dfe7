package application

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/bnema/pacer/internal/domain"
)

// Recorder is the append-only in-memory history of executed actions.
type Recorder struct {
	mu      sync.RWMutex
	actions []domain.ActionRecord
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(record domain.ActionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions = append(r.actions, record)
}

// Seed loads replayed history into an empty recorder, oldest first.
func (r *Recorder) Seed(records []domain.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.actions) > 0 {
		return errors.New("seed recorder: history is not empty")
	}

	seeded := slices.Clone(records)
	slices.SortStableFunc(seeded, func(a, b domain.ActionRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	r.actions = seeded

	return nil
}

// CountSince counts actions of actionType strictly after since.
func (r *Recorder) CountSince(actionType domain.ActionType, since time.Time) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, action := range r.actions {
		if action.Type == actionType && action.Timestamp.After(since) {
			count++
		}
	}

	return count
}

func (r *Recorder) HourlyCount(actionType domain.ActionType, now time.Time) int {
	return r.CountSince(actionType, now.Add(-time.Hour))
}

func (r *Recorder) DailyCount(actionType domain.ActionType, now time.Time) int {
	return r.CountSince(actionType, now.Add(-24*time.Hour))
}

// TotalSince counts actions of every type strictly after since.
func (r *Recorder) TotalSince(since time.Time) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, action := range r.actions {
		if action.Timestamp.After(since) {
			count++
		}
	}

	return count
}

func (r *Recorder) FailuresSince(since time.Time) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, action := range r.actions {
		if !action.Success && action.Timestamp.After(since) {
			count++
		}
	}

	return count
}

// Last returns the most recently recorded action.
func (r *Recorder) Last() (domain.ActionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.actions) == 0 {
		return domain.ActionRecord{}, false
	}

	return r.actions[len(r.actions)-1], true
}

func (r *Recorder) Actions() []domain.ActionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.actions)
}

func (r *Recorder) Stats() domain.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.Stats{ByType: map[domain.ActionType]domain.TypeStats{}}
	for _, action := range r.actions {
		stats.TotalActions++
		byType := stats.ByType[action.Type]
		byType.Total++
		if action.Success {
			stats.SuccessfulActions++
			byType.Successful++
		}
		stats.ByType[action.Type] = byType
		if action.Timestamp.After(stats.LastAction) {
			stats.LastAction = action.Timestamp
		}
	}

	stats.OverallSuccessRate = domain.SuccessRate(stats.SuccessfulActions, stats.TotalActions)
	for actionType, byType := range stats.ByType {
		byType.SuccessRate = domain.SuccessRate(byType.Successful, byType.Total)
		stats.ByType[actionType] = byType
	}

	return stats
}
