package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/cache"
	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/persistence"
	"github.com/sawpanic/ivcrush/internal/report/perf"
)

// ResultCache is the subset of cache.ResultCache the service needs
type ResultCache interface {
	Get(ctx context.Context, key string) (*backtest.Result, bool, error)
	Set(ctx context.Context, key string, res *backtest.Result) error
}

// BacktestService runs comparisons, serving unchanged runs from the cache
// and persisting fresh ones. Cache and repository are optional and their
// failures never fail a comparison.
type BacktestService struct {
	cache    ResultCache
	repo     persistence.RunsRepo
	observer backtest.Observer
}

// NewBacktestService creates a service; any argument may be nil
func NewBacktestService(c ResultCache, repo persistence.RunsRepo, observer backtest.Observer) *BacktestService {
	return &BacktestService{cache: c, repo: repo, observer: observer}
}

// CompareOutcome is a comparison plus where each result came from
type CompareOutcome struct {
	Comparison *backtest.Comparison `json:"comparison"`
	Alerts     perf.AlertSummary    `json:"alerts"`
	RunIDs     map[string]uuid.UUID `json:"run_ids,omitempty"`
	Cached     []string             `json:"cached,omitempty"`
}

// Compare runs every configuration over ds
func (s *BacktestService) Compare(ctx context.Context, ds backtest.Dataset, configs []*config.ScoringConfig, opts backtest.Options) (*CompareOutcome, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no configurations", ErrBadRequest)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	dsFP, err := ds.Fingerprint()
	if err != nil {
		return nil, err
	}

	engine := backtest.NewEngine(opts)
	engine.SetObserver(s.observer)

	out := &CompareOutcome{RunIDs: make(map[string]uuid.UUID)}
	results := make([]*backtest.Result, 0, len(configs))

	for _, cfg := range configs {
		key := cache.Key(cfg.Fingerprint(), dsFP, engine.Options())

		// Step 1: cache lookup
		if res, ok := s.cached(ctx, cfg.Name, key); ok {
			results = append(results, res)
			out.Cached = append(out.Cached, cfg.Name)
			continue
		}

		// Step 2: run
		res, err := engine.Run(ctx, ds, cfg)
		if err != nil {
			return nil, err
		}
		results = append(results, res)

		// Step 3: store
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, res); err != nil {
				log.Warn().Str("config", cfg.Name).Err(err).Msg("Failed to cache backtest result")
			}
		}
		if s.repo != nil {
			id, err := s.repo.Save(ctx, res, dsFP)
			if err != nil {
				log.Warn().Str("config", cfg.Name).Err(err).Msg("Backtest run not persisted")
				continue
			}
			out.RunIDs[cfg.Name] = id
		}
	}

	out.Comparison = backtest.NewComparison(dsFP, results, engine.Options().Capital)

	var alerts []perf.Alert
	for _, row := range out.Comparison.Ranked {
		alerts = append(alerts, row.Alerts...)
	}
	perf.LogAlerts(alerts)
	out.Alerts = perf.SummarizeAlerts(alerts)
	return out, nil
}

func (s *BacktestService) cached(ctx context.Context, name, key string) (*backtest.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	res, found, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Str("config", name).Err(err).Msg("Result cache unavailable, running backtest")
		return nil, false
	}
	if found {
		log.Info().Str("config", name).Msg("Serving backtest from cache")
	}
	return res, found
}

// Runs lists recent persisted runs, optionally for one configuration
func (s *BacktestService) Runs(ctx context.Context, configName string, limit int) ([]persistence.Run, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("run history: %w", ErrPersistenceDisabled)
	}
	if limit <= 0 {
		limit = 20
	}
	if configName != "" {
		return s.repo.ListByConfig(ctx, configName, limit)
	}
	return s.repo.Latest(ctx, limit)
}

// Run returns one persisted run with its trades
func (s *BacktestService) Run(ctx context.Context, id uuid.UUID) (*persistence.Run, []backtest.Trade, error) {
	if s.repo == nil {
		return nil, nil, fmt.Errorf("run %s: %w", id, ErrPersistenceDisabled)
	}
	run, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	trades, err := s.repo.Trades(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, trades, nil
}
