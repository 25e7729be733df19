package http

import (
	"encoding/json"
	"time"

	"github.com/sawpanic/ivcrush/internal/application"
	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/persistence"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// RankRequest is the body of POST /v1/rank
type RankRequest struct {
	Config       string                `json:"config"`
	Capital      float64               `json:"capital"`
	MaxPositions int                   `json:"max_positions,omitempty"`
	Event        application.RankInput `json:"event"`
}

// BacktestRequest is the body of POST /v1/backtest. Dataset is either a JSON
// array of events or JSON lines in a string.
type BacktestRequest struct {
	Configs []string        `json:"configs"`
	Capital float64         `json:"capital,omitempty"`
	Start   time.Time       `json:"start,omitempty"`
	End     time.Time       `json:"end,omitempty"`
	Dataset json.RawMessage `json:"dataset"`
}

// Options converts the request bounds, defaulting capital
func (r BacktestRequest) Options(workers int) backtest.Options {
	opts := backtest.DefaultOptions()
	if r.Capital != 0 {
		opts.Capital = r.Capital
	}
	opts.Start = r.Start
	opts.End = r.End
	if workers > 0 {
		opts.Workers = workers
	}
	return opts
}

// ConfigsResponse lists the available scoring configurations
type ConfigsResponse struct {
	Count   int                     `json:"count"`
	Configs []ConfigSummary         `json:"configs"`
	Details []*config.ScoringConfig `json:"details,omitempty"`
}

// ConfigSummary is one row of GET /v1/configs
type ConfigSummary struct {
	Name         string                `json:"name"`
	Description  string                `json:"description,omitempty"`
	Fingerprint  string                `json:"fingerprint"`
	Weights      config.ScoringWeights `json:"weights"`
	MinScore     float64               `json:"min_score"`
	MaxPositions int                   `json:"max_positions"`
}

// RunsResponse lists persisted runs
type RunsResponse struct {
	Count int               `json:"count"`
	Runs  []persistence.Run `json:"runs"`
}

// RunResponse is one persisted run with its trades
type RunResponse struct {
	Run    *persistence.Run `json:"run"`
	Trades []backtest.Trade `json:"trades"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string                 `json:"status"` // "healthy", "degraded"
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	Configs   int                    `json:"configs"`
	Clients   int                    `json:"rate_limited_clients"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult is the health of one optional backend
type CheckResult struct {
	Status   string   `json:"status"` // "pass", "warn", "fail"
	Breaker  string   `json:"breaker,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Duration string   `json:"duration"`
}
