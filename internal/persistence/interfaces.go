package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sawpanic/ivcrush/internal/backtest"
)

// ErrNotFound is returned when a run id does not exist
var ErrNotFound = errors.New("backtest run not found")

// Run is one persisted backtest run with its headline statistics
type Run struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Config             string    `json:"config" db:"config"`
	ConfigFingerprint  string    `json:"config_fingerprint" db:"config_fingerprint"`
	DatasetFingerprint string    `json:"dataset_fingerprint" db:"dataset_fingerprint"`
	Events             int       `json:"events" db:"events"`
	Trades             int       `json:"trades" db:"trades"`
	WinRate            float64   `json:"win_rate" db:"win_rate"`
	TotalPnL           float64   `json:"total_pnl" db:"total_pnl"`
	Sharpe             float64   `json:"sharpe" db:"sharpe"`
	Sortino            float64   `json:"sortino" db:"sortino"`
	MaxDrawdown        float64   `json:"max_drawdown" db:"max_drawdown"`
	ProfitFactor       float64   `json:"profit_factor" db:"profit_factor"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// RunFromResult builds the headline row for a result
func RunFromResult(res *backtest.Result, datasetFingerprint string) Run {
	return Run{
		Config:             res.Config,
		ConfigFingerprint:  res.Fingerprint,
		DatasetFingerprint: datasetFingerprint,
		Events:             res.Events,
		Trades:             res.Stats.Trades,
		WinRate:            res.Stats.WinRate,
		TotalPnL:           res.Stats.TotalPnL,
		Sharpe:             res.Stats.Sharpe,
		Sortino:            res.Stats.Sortino,
		MaxDrawdown:        res.Stats.MaxDrawdown,
		ProfitFactor:       res.Stats.ProfitFactor,
	}
}

// RunsRepo persists backtest runs and their trades
type RunsRepo interface {
	// Save stores the run and every trade atomically and returns the new id
	Save(ctx context.Context, res *backtest.Result, datasetFingerprint string) (uuid.UUID, error)

	// Get returns one run header
	Get(ctx context.Context, id uuid.UUID) (*Run, error)

	// Trades returns the trades of a run in chronological order
	Trades(ctx context.Context, id uuid.UUID) ([]backtest.Trade, error)

	// ListByConfig returns the most recent runs of one configuration
	ListByConfig(ctx context.Context, config string, limit int) ([]Run, error)

	// Latest returns the most recent runs across all configurations
	Latest(ctx context.Context, limit int) ([]Run, error)
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool      `json:"healthy"`
	Errors         []string  `json:"errors,omitempty"`
	LastCheck      time.Time `json:"last_check"`
	ResponseTimeMS int64     `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for the persistence layer
type RepositoryHealth interface {
	// Health returns current repository health status
	Health(ctx context.Context) HealthCheck
}
