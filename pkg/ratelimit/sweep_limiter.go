// Package ratelimit paces outbound provider calls under quota limits.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config holds limiter configuration. Units are provider quota units, not
// requests: Gmail charges 5 units per metadata get and allows 250 units per
// user per second.
type Config struct {
	UnitsPerSecond int // refill rate (default: 200, under Gmail's 250)
	Burst          int // bucket capacity (default: 250)
}

// DefaultConfig returns defaults safe for the Gmail per-user quota.
func DefaultConfig() *Config {
	return &Config{
		UnitsPerSecond: 200,
		Burst:          250,
	}
}

// Limiter is an in-process token bucket.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // units per second
	burst  float64
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter from config.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Limiter{
		rate:   float64(cfg.UnitsPerSecond),
		burst:  float64(cfg.Burst),
		tokens: float64(cfg.Burst),
		last:   time.Now(),
	}
}

// refill credits tokens for the time elapsed since the last call.
// Caller holds mu.
func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.last).Seconds()
	l.last = now
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}

// reserve takes n units and returns how long the caller must wait before
// proceeding. Requests larger than the burst are clamped to it.
func (l *Limiter) reserve(n int) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	units := float64(n)
	if units > l.burst {
		units = l.burst
	}

	now := time.Now()
	l.refill(now)
	l.tokens -= units
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

// Wait blocks until n quota units are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	delay := l.reserve(n)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
