// Package circuit wraps sony/gobreaker for the optional Redis cache and
// Postgres repository so an unavailable backend degrades to "no cache" or
// "not persisted" instead of slowing every request.
package circuit

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/ivcrush/internal/config"
)

// ErrCircuitOpen is returned when the breaker rejects a call
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StateListener is told the new state after every transition
type StateListener func(name, state string)

// Breaker guards calls to one backend
type Breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// New creates a breaker. Errors matched by ignore (for example a cache miss)
// count as successes.
func New(name string, cfg config.CircuitConfig, listener StateListener, ignore ...error) *Breaker {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.MaxRequests),
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			for _, target := range ignore {
				if errors.Is(err, target) {
					return true
				}
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			if listener != nil {
				listener(name, to.String())
			}
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st), name: name}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

// State returns "closed", "half-open" or "open"
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Call runs fn through the breaker. Rejections are reported as
// ErrCircuitOpen.
func (b *Breaker) Call(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}
