package application

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
)

type ExecutorConfig struct {
	Username string
	Limits   domain.RateLimitConfig
	Delays   domain.DelayConfig
}

type ExecutorOptions struct {
	Clock   ports.Clock
	Sleeper ports.Sleeper
	Random  ports.Random
	// Journal, when set, receives a copy of every record.
	Journal ports.ActionJournal
	Logger  *slog.Logger
}

// Executor runs actions one at a time under per-type quotas, minimum
// spacing and post-action jitter, recording every attempt.
type Executor struct {
	username string
	limits   domain.RateLimitConfig
	delays   domain.DelayConfig
	recorder *Recorder
	clock    ports.Clock
	sleeper  ports.Sleeper
	random   ports.Random
	journal  ports.ActionJournal
	logger   *slog.Logger

	mu sync.Mutex
}

func NewExecutor(cfg ExecutorConfig, recorder *Recorder, opts ExecutorOptions) *Executor {
	if recorder == nil {
		recorder = NewRecorder()
	}
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.Sleeper == nil {
		opts.Sleeper = ports.SystemSleeper{}
	}
	if opts.Random == nil {
		opts.Random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Executor{
		username: cfg.Username,
		limits:   cfg.Limits.Clone(),
		delays:   cfg.Delays,
		recorder: recorder,
		clock:    opts.Clock,
		sleeper:  opts.Sleeper,
		random:   opts.Random,
		journal:  opts.Journal,
		logger:   opts.Logger,
	}
}

func (e *Executor) Recorder() *Recorder {
	return e.recorder
}

// Execute runs action unless the quota for actionType is exhausted, in which
// case it returns (false, nil) without invoking it. performed is true once
// action has been invoked, whatever its outcome.
func (e *Executor) Execute(ctx context.Context, actionType domain.ActionType, action func(context.Context) error) (bool, error) {
	if action == nil {
		return false, errors.New("execute: action is nil")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if e.quotaExhausted(actionType, now) {
		return false, nil
	}

	if last, ok := e.recorder.Last(); ok {
		if wait := e.delays.Action.Min - now.Sub(last.Timestamp); wait > 0 {
			e.logger.Debug("spacing actions", "action", actionType, "wait", wait)
			if err := e.sleeper.Sleep(ctx, wait); err != nil {
				return false, err
			}
		}
	}

	actionErr := action(ctx)

	record := domain.ActionRecord{Type: actionType, Timestamp: e.clock.Now(), Success: actionErr == nil}
	var classified error
	if actionErr != nil {
		classified = classifyPlatformError(string(actionType), actionErr)
		record.Error = actionErr.Error()
		if record.Error == "" {
			record.Error = domain.ErrorKind(classified)
		}
	}
	e.recorder.Record(record)
	e.appendJournal(ctx, record)

	if actionErr != nil {
		backoff := e.jitter(e.delays.Error)
		e.logger.Warn("action failed", "action", actionType, "kind", domain.ErrorKind(classified), "error", actionErr, "backoff", backoff)
		if err := e.sleeper.Sleep(ctx, backoff); err != nil {
			return true, errors.Join(classified, err)
		}
		return true, classified
	}

	if err := e.sleeper.Sleep(ctx, e.jitter(e.delays.Action)); err != nil {
		return true, err
	}

	return true, nil
}

// Request executes one platform request through handle as an action.
func (e *Executor) Request(ctx context.Context, handle *Handle, actionType domain.ActionType, request ports.Request) (ports.Response, bool, error) {
	if handle == nil {
		return ports.Response{}, false, errors.New("request: session handle is nil")
	}

	var response ports.Response
	performed, err := e.Execute(ctx, actionType, func(ctx context.Context) error {
		resp, err := handle.Do(ctx, request)
		response = resp
		return err
	})

	return response, performed, err
}

// Remaining reports how many more actions of actionType the quota allows
// right now, and false when the type is unlimited.
func (e *Executor) Remaining(actionType domain.ActionType) (int, bool) {
	if !e.limits.Enabled {
		return 0, false
	}
	limit, ok := e.limits.LimitFor(actionType)
	if !ok {
		return 0, false
	}

	used := e.recorder.CountSince(actionType, e.clock.Now().Add(-limit.Window.Duration()))
	return max(limit.Max-used, 0), true
}

func (e *Executor) quotaExhausted(actionType domain.ActionType, now time.Time) bool {
	if !e.limits.Enabled {
		return false
	}
	limit, ok := e.limits.LimitFor(actionType)
	if !ok {
		return false
	}

	count := e.recorder.CountSince(actionType, now.Add(-limit.Window.Duration()))
	if count < limit.Max {
		return false
	}

	e.logger.Info("action quota reached", "action", actionType, "count", count, "max", limit.Max, "window", limit.Window.Label())
	return true
}

func (e *Executor) jitter(r domain.DelayRange) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}

	return r.Min + time.Duration(e.random.Float64()*float64(r.Max-r.Min))
}

func (e *Executor) appendJournal(ctx context.Context, record domain.ActionRecord) {
	if e.journal == nil {
		return
	}

	if err := e.journal.Append(context.WithoutCancel(ctx), e.username, record); err != nil {
		e.logger.Warn("journal append failed", "action", record.Type, "error", err)
	}
}
