package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter checks whether a request from the given principal should
// be allowed.
type RateLimiter interface {
	Allow(ctx context.Context, p *Principal) error
}

// InProcessLimiter is a simple sliding-window rate limiter that tracks
// request counts per application in memory.
type InProcessLimiter struct {
	rpm      int
	adminRPM int
	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	count    int
	windowAt time.Time
}

// NewInProcessLimiter creates a rate limiter. rpm applies to regular
// applications, adminRPM to admin applications; a zero value means no
// limit for that class.
func NewInProcessLimiter(rpm, adminRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		rpm:      rpm,
		adminRPM: adminRPM,
		counters: make(map[string]*counter),
	}
}

// Allow checks if the request is within the rate limit.
// Fails open: any internal inconsistency allows the request.
func (l *InProcessLimiter) Allow(_ context.Context, p *Principal) error {
	if p == nil {
		return nil
	}

	rpm := l.rpm
	if p.IsAdmin {
		rpm = l.adminRPM
	}
	if rpm <= 0 {
		return nil // no limit
	}

	key := p.ApplicationID.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowAt) >= time.Minute {
		// New window.
		l.counters[key] = &counter{count: 1, windowAt: now}
		return nil
	}

	c.count++
	if c.count > rpm {
		return ErrTooManyRequests
	}

	return nil
}
