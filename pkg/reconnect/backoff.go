package reconnect

import (
	"context"
	"sync"
	"time"
)

// Backoff tracks consecutive failures and grows the retry delay
// exponentially between Min and Max
type Backoff struct {
	min        time.Duration
	max        time.Duration
	multiplier float64

	mu       sync.Mutex
	current  time.Duration
	failures int
}

// Config configures a Backoff
type Config struct {
	MinBackoff        time.Duration // first delay (e.g. 500ms)
	MaxBackoff        time.Duration // delay cap (e.g. 30s)
	BackoffMultiplier float64       // growth per failure (e.g. 2.0)
}

// NewBackoff creates a Backoff, filling unset fields with defaults
func NewBackoff(cfg Config) *Backoff {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = 30 * time.Second
		if cfg.MaxBackoff < cfg.MinBackoff {
			cfg.MaxBackoff = cfg.MinBackoff
		}
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 2.0
	}

	return &Backoff{
		min:        cfg.MinBackoff,
		max:        cfg.MaxBackoff,
		multiplier: cfg.BackoffMultiplier,
		current:    cfg.MinBackoff,
	}
}

// RecordFailure returns the delay to wait before the next attempt and grows it
func (b *Backoff) RecordFailure() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	delay := b.current

	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next

	return delay
}

// RecordSuccess resets the delay and failure counter
func (b *Backoff) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.min
	b.failures = 0
}

// Failures returns the number of consecutive failures
func (b *Backoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Wait records a failure and sleeps for its delay. It returns false if ctx
// ends first.
func (b *Backoff) Wait(ctx context.Context) bool {
	t := time.NewTimer(b.RecordFailure())
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
