package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

type Window string

const (
	WindowHour Window = "hour"
	WindowDay  Window = "day"
)

func (w Window) Duration() time.Duration {
	switch w {
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (w Window) Label() string {
	switch w {
	case WindowHour:
		return "1h"
	case WindowDay:
		return "24h"
	default:
		return string(w)
	}
}

func (w Window) Valid() bool {
	return w.Duration() > 0
}

type Limit struct {
	Max    int
	Window Window
}

type RateLimitConfig struct {
	Enabled bool
	Limits  map[ActionType]Limit
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled: true,
		Limits: map[ActionType]Limit{
			ActionLike:          {Max: 30, Window: WindowHour},
			ActionFollow:        {Max: 20, Window: WindowHour},
			ActionUnfollow:      {Max: 20, Window: WindowHour},
			ActionComment:       {Max: 10, Window: WindowHour},
			ActionDirectMessage: {Max: 15, Window: WindowHour},
			ActionPost:          {Max: 5, Window: WindowDay},
		},
	}
}

func (c RateLimitConfig) LimitFor(actionType ActionType) (Limit, bool) {
	limit, ok := c.Limits[actionType]
	return limit, ok
}

// Clone returns a copy that does not share the Limits map.
func (c RateLimitConfig) Clone() RateLimitConfig {
	limits := make(map[ActionType]Limit, len(c.Limits))
	for actionType, limit := range c.Limits {
		limits[actionType] = limit
	}

	return RateLimitConfig{Enabled: c.Enabled, Limits: limits}
}

func (c RateLimitConfig) Validate() error {
	types := make([]string, 0, len(c.Limits))
	for actionType := range c.Limits {
		types = append(types, string(actionType))
	}
	sort.Strings(types)

	var errs []error
	for _, name := range types {
		limit := c.Limits[ActionType(name)]
		if name == "" {
			errs = append(errs, errors.New("rate limit action type is empty"))
		}
		if limit.Max < 0 {
			errs = append(errs, fmt.Errorf("rate limit %s: max must be >= 0", name))
		}
		if !limit.Window.Valid() {
			errs = append(errs, fmt.Errorf("rate limit %s: unsupported window %q", name, limit.Window))
		}
	}

	return errors.Join(errs...)
}

type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

func (r DelayRange) Validate(name string) error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("%s delay must not be negative", name)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%s delay min %s exceeds max %s", name, r.Min, r.Max)
	}

	return nil
}

type DelayConfig struct {
	Action  DelayRange
	Request DelayRange
	Error   DelayRange
}

func DefaultDelayConfig() DelayConfig {
	return DelayConfig{
		Action:  DelayRange{Min: 2 * time.Second, Max: 5 * time.Second},
		Request: DelayRange{Min: 1 * time.Second, Max: 3 * time.Second},
		Error:   DelayRange{Min: 10 * time.Second, Max: 30 * time.Second},
	}
}

func (c DelayConfig) Validate() error {
	return errors.Join(
		c.Action.Validate("action"),
		c.Request.Validate("request"),
		c.Error.Validate("error"),
	)
}
