package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter provides per-client rate limiting using a token bucket per key
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	rps     float64 // Requests per second
	burst   int     // Burst capacity
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a new rate limiter with the specified RPS and burst capacity
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		clients: make(map[string]*client),
		rps:     rps,
		burst:   burst,
		now:     time.Now,
	}
}

// get returns or creates the bucket for key
func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = l.now()
	return c.limiter
}

// Allow returns true if a request for key is allowed now
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until a request for key is allowed or ctx is cancelled
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Sweep drops buckets idle for longer than maxIdle and returns how many were
// removed
func (l *Limiter) Sweep(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxIdle)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle buckets every interval until ctx is done
func (l *Limiter) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(maxIdle)
		}
	}
}

// Clients returns the number of tracked keys
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stats returns a snapshot for key, or false when key is unknown
func (l *Limiter) Stats(key string) (LimiterStats, bool) {
	l.mu.Lock()
	c, ok := l.clients[key]
	l.mu.Unlock()
	if !ok {
		return LimiterStats{}, false
	}
	return LimiterStats{
		Key:             key,
		RPS:             float64(c.limiter.Limit()),
		Burst:           c.limiter.Burst(),
		TokensAvailable: c.limiter.Tokens(),
		LastSeen:        c.lastSeen,
	}, true
}

// LimiterStats describes one client bucket
type LimiterStats struct {
	Key             string    `json:"key"`
	RPS             float64   `json:"rps"`
	Burst           int       `json:"burst"`
	TokensAvailable float64   `json:"tokens_available"`
	LastSeen        time.Time `json:"last_seen"`
}

// IsThrottled returns true when no whole token is available
func (s LimiterStats) IsThrottled() bool {
	return s.TokensAvailable < 1
}

// RetryAfter estimates the wait until one token refills, 0 when not throttled
func (s LimiterStats) RetryAfter() time.Duration {
	if !s.IsThrottled() || s.RPS <= 0 {
		return 0
	}
	return time.Duration((1 - s.TokensAvailable) / s.RPS * float64(time.Second))
}
