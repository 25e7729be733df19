package backtest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sawpanic/ivcrush/internal/domain/strategy"
	"github.com/sawpanic/ivcrush/internal/report/perf"
)

// Event is one historical earnings event with its candidate strategies and
// the move that actually happened
type Event struct {
	Symbol          string              `json:"symbol"`
	Date            time.Time           `json:"date"`
	Price           float64             `json:"price"`            // underlying at entry
	ImpliedMovePct  float64             `json:"implied_move_pct"` // straddle-implied move
	HistoricalMoves []float64           `json:"historical_moves"` // past earnings moves, percent
	RealizedMovePct float64             `json:"realized_move_pct"`
	Candidates      []strategy.Strategy `json:"candidates"`
}

// Dataset is a set of events in any order
type Dataset []Event

// Fingerprint hashes the dataset contents for cache keys
func (d Dataset) Fingerprint() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint dataset: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Trade is one simulated position held through expiration
type Trade struct {
	Symbol          string        `json:"symbol"`
	Date            time.Time     `json:"date"`
	Kind            strategy.Kind `json:"kind"`
	Rank            int           `json:"rank"`
	Score           float64       `json:"score"`
	Contracts       int           `json:"contracts"`
	Fallback        bool          `json:"fallback"`
	Credit          float64       `json:"credit"`   // per contract
	MaxLoss         float64       `json:"max_loss"` // per contract
	EntryPrice      float64       `json:"entry_price"`
	ExitPrice       float64       `json:"exit_price"`
	RealizedMovePct float64       `json:"realized_move_pct"`
	PnLPerContract  float64       `json:"pnl_per_contract"`
	PnL             float64       `json:"pnl"`
	Rationale       string        `json:"rationale"`
}

// Win reports whether the trade made money
func (t Trade) Win() bool {
	return t.PnL > 0
}

// Skip records an event that produced no trade
type Skip struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

// Result is the outcome of one configuration over one dataset. Identical
// inputs always produce an identical Result.
type Result struct {
	Config      string     `json:"config"`
	Fingerprint string     `json:"config_fingerprint"`
	Start       time.Time  `json:"start,omitempty"`
	End         time.Time  `json:"end,omitempty"`
	Events      int        `json:"events"`
	Trades      []Trade    `json:"trades"`
	Skips       []Skip     `json:"skips"`
	Stats       perf.Stats `json:"stats"`
}

// PnLs returns trade P&L in chronological order
func (r *Result) PnLs() []float64 {
	pnls := make([]float64, len(r.Trades))
	for i, t := range r.Trades {
		pnls[i] = t.PnL
	}
	return pnls
}

// Options bound a run. Zero Start or End leaves that side open.
type Options struct {
	Start   time.Time
	End     time.Time
	Capital float64 // dollars available per event; not compounded
	Workers int
}

// DefaultOptions returns $100k capital and four workers
func DefaultOptions() Options {
	return Options{
		Capital: 100000,
		Workers: 4,
	}
}

// Validate checks the run bounds
func (o Options) Validate() error {
	if !(o.Capital > 0) {
		return fmt.Errorf("capital %.2f must be positive", o.Capital)
	}
	if !o.Start.IsZero() && !o.End.IsZero() && o.End.Before(o.Start) {
		return fmt.Errorf("end %s before start %s", o.End.Format("2006-01-02"), o.Start.Format("2006-01-02"))
	}
	return nil
}
