// Package timesync steps the system clock from an NTP pool. It backs
// the connectivity watcher's best-effort resync after an address
// change: a robot that just got a new lease may have been powered off
// long enough for its clock to drift badly.
package timesync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

const (
	DefaultPool = "pool.ntp.org"
	// defaultStepThreshold is 500ms: below that, drift is harmless for
	// scheduling and not worth a clock step.
	defaultStepThreshold = 500 * time.Millisecond
)

// Status is the outcome of the most recent sync attempt.
type Status struct {
	Offset    time.Duration
	Stepped   bool
	Error     string
	CheckedAt time.Time
}

// NTP queries a pool and steps the clock when the offset exceeds the
// threshold. Stepping goes through a setter so tests (and unprivileged
// processes) never touch the real clock.
type NTP struct {
	mu        sync.RWMutex
	status    Status
	pool      string
	threshold time.Duration
	setTime   func(time.Time) error
	query     func(pool string) (time.Duration, error)
}

type Option func(*NTP)

func WithPool(pool string) Option {
	return func(n *NTP) {
		if pool != "" {
			n.pool = pool
		}
	}
}

func WithThreshold(d time.Duration) Option {
	return func(n *NTP) { n.threshold = d }
}

// WithSetter overrides the clock setter. Production uses the platform
// default (clock_settime on linux).
func WithSetter(set func(time.Time) error) Option {
	return func(n *NTP) { n.setTime = set }
}

func New(opts ...Option) *NTP {
	n := &NTP{
		pool:      DefaultPool,
		threshold: defaultStepThreshold,
		setTime:   setSystemClock,
		query:     queryOffset,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Sync queries the pool once and steps the clock if needed. The error
// return exists for logging at call sites; callers treat sync as
// best-effort.
func (n *NTP) Sync(ctx context.Context) error {
	offset, err := n.query(n.pool)
	now := time.Now()
	if err != nil {
		n.setStatus(Status{Error: err.Error(), CheckedAt: now})
		return fmt.Errorf("query ntp pool %s: %w", n.pool, err)
	}

	abs := offset
	if abs < 0 {
		abs = -abs
	}
	if abs < n.threshold {
		n.setStatus(Status{Offset: offset, CheckedAt: now})
		return nil
	}

	if err := n.setTime(now.Add(offset)); err != nil {
		n.setStatus(Status{Offset: offset, Error: err.Error(), CheckedAt: now})
		return fmt.Errorf("step clock: %w", err)
	}
	slog.Info("stepped system clock", "offset", offset)
	n.setStatus(Status{Offset: offset, Stepped: true, CheckedAt: now})
	return nil
}

func (n *NTP) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

func (n *NTP) setStatus(s Status) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()
}

func queryOffset(pool string) (time.Duration, error) {
	resp, err := ntp.Query(pool)
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}
