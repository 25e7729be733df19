package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/net/circuit"
)

// Guarded wraps a RunsRepo with a circuit breaker. ErrNotFound does not
// count against the backend.
type Guarded struct {
	repo    RunsRepo
	breaker *circuit.Breaker
}

// NewGuarded wraps repo; breaker should be built with ErrNotFound ignored
func NewGuarded(repo RunsRepo, breaker *circuit.Breaker) *Guarded {
	return &Guarded{repo: repo, breaker: breaker}
}

var _ RunsRepo = (*Guarded)(nil)

func (g *Guarded) Save(ctx context.Context, res *backtest.Result, datasetFingerprint string) (uuid.UUID, error) {
	var id uuid.UUID
	err := g.breaker.Call(func() error {
		var err error
		id, err = g.repo.Save(ctx, res, datasetFingerprint)
		return err
	})
	return id, err
}

func (g *Guarded) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run *Run
	err := g.breaker.Call(func() error {
		var err error
		run, err = g.repo.Get(ctx, id)
		return err
	})
	return run, err
}

func (g *Guarded) Trades(ctx context.Context, id uuid.UUID) ([]backtest.Trade, error) {
	var trades []backtest.Trade
	err := g.breaker.Call(func() error {
		var err error
		trades, err = g.repo.Trades(ctx, id)
		return err
	})
	return trades, err
}

func (g *Guarded) ListByConfig(ctx context.Context, config string, limit int) ([]Run, error) {
	var runs []Run
	err := g.breaker.Call(func() error {
		var err error
		runs, err = g.repo.ListByConfig(ctx, config, limit)
		return err
	})
	return runs, err
}

func (g *Guarded) Latest(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := g.breaker.Call(func() error {
		var err error
		runs, err = g.repo.Latest(ctx, limit)
		return err
	})
	return runs, err
}

// Health reports the wrapped repository's health plus the breaker state.
// The check bypasses the breaker so an open circuit can still be probed.
func (g *Guarded) Health(ctx context.Context) HealthCheck {
	check := HealthCheck{Healthy: true}
	if h, ok := g.repo.(RepositoryHealth); ok {
		check = h.Health(ctx)
	}
	if g.breaker.State() == "open" {
		check.Healthy = false
		check.Errors = append(check.Errors, "circuit "+g.breaker.Name()+" open")
	}
	return check
}

// BreakerState exposes the breaker state for health reporting
func (g *Guarded) BreakerState() string {
	return g.breaker.State()
}
