// Package application ties scoring, sizing and backtesting to the optional
// cache and repository for the CLI and HTTP API.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/domain/strategy"
	"github.com/sawpanic/ivcrush/internal/score/composite"
	"github.com/sawpanic/ivcrush/internal/score/vrp"
	"github.com/sawpanic/ivcrush/internal/sizing"
)

// ErrBadRequest marks input errors the caller can fix
var ErrBadRequest = errors.New("bad request")

// RankInput is one underlying's earnings event with its candidate strategies
type RankInput struct {
	Symbol          string              `json:"symbol" yaml:"symbol"`
	ImpliedMovePct  float64             `json:"implied_move_pct" yaml:"implied_move_pct"`
	HistoricalMoves []float64           `json:"historical_moves" yaml:"historical_moves"`
	Candidates      []strategy.Strategy `json:"candidates" yaml:"candidates"`
}

// RankOutcome is a ranking plus the sized selection
type RankOutcome struct {
	Config      string            `json:"config"`
	Fingerprint string            `json:"config_fingerprint"`
	Symbol      string            `json:"symbol"`
	Capital     float64           `json:"capital"`
	Ranking     composite.Ranking `json:"ranking"`
	Positions   []sizing.Sized    `json:"positions"`
}

// ScoreRecorder counts scored strategies; metrics.Registry implements it
type ScoreRecorder interface {
	RecordScored(config string, eligible, ineligible int)
}

// Rank scores, ranks and sizes one event's candidates on up to workers
// goroutines. maxPositions <= 0 uses the configuration's limit. rec may be
// nil.
func Rank(ctx context.Context, cfg *config.ScoringConfig, in RankInput, capital float64, maxPositions, workers int, rec ScoreRecorder) (*RankOutcome, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: no configuration", ErrBadRequest)
	}
	if capital <= 0 {
		return nil, fmt.Errorf("%w: capital must be positive, got %.2f", ErrBadRequest, capital)
	}
	if len(in.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidate strategies", ErrBadRequest)
	}
	if maxPositions <= 0 {
		maxPositions = cfg.MaxPositions
	}

	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	candidates := make([]strategy.Strategy, len(in.Candidates))
	for i, c := range in.Candidates {
		if c.Symbol == "" {
			c.Symbol = symbol
		}
		candidates[i] = c
	}

	scorer := composite.NewScorer(cfg)
	v := scorer.ClassifyVRP(vrp.Input{
		ImpliedMovePct:  in.ImpliedMovePct,
		HistoricalMoves: in.HistoricalMoves,
	})
	ranking, err := scorer.RankContext(ctx, candidates, v, workers)
	if err != nil {
		return nil, err
	}
	positions := sizing.NewSizer(cfg.Sizing).SizeSelection(ranking, maxPositions, capital)

	eligible := len(ranking.Eligible())
	if rec != nil {
		rec.RecordScored(cfg.Name, eligible, len(ranking.Ranked)-eligible)
	}

	log.Debug().
		Str("config", cfg.Name).
		Str("symbol", symbol).
		Str("vrp_tier", string(v.Tier)).
		Int("ranked", len(ranking.Ranked)).
		Int("eligible", eligible).
		Int("positions", len(positions)).
		Msg("Ranked candidates")

	return &RankOutcome{
		Config:      cfg.Name,
		Fingerprint: cfg.Fingerprint(),
		Symbol:      symbol,
		Capital:     capital,
		Ranking:     ranking,
		Positions:   positions,
	}, nil
}

// ErrPersistenceDisabled is returned by history queries without a repository
var ErrPersistenceDisabled = errors.New("persistence not configured")
