package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/pacer/internal/ports"
	"github.com/stretchr/testify/mock"
)

// fakeClock is both clock and sleeper: sleeping advances time instantly.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type fixedRandom float64

func (r fixedRandom) Float64() float64 { return float64(r) }

type staticCredentials struct {
	credentials ports.Credentials
	err         error
}

func (s staticCredentials) Credentials(context.Context) (ports.Credentials, error) {
	return s.credentials, s.err
}

func sequenceIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
	}
}

func mockAnyContext() interface{} {
	return mock.Anything
}
