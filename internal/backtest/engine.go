// Package backtest replays historical earnings events through a scoring
// configuration and aggregates the simulated trades.
package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/report/perf"
	"github.com/sawpanic/ivcrush/internal/score/composite"
	"github.com/sawpanic/ivcrush/internal/score/vrp"
	"github.com/sawpanic/ivcrush/internal/sizing"
)

// Engine runs backtests. It holds no per-run state and may be reused.
type Engine struct {
	opts     Options
	observer Observer
}

// NewEngine creates an engine; Workers < 1 selects runtime.NumCPU
func NewEngine(opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	return &Engine{opts: opts, observer: NopObserver{}}
}

// SetObserver installs run callbacks; nil restores the no-op observer
func (e *Engine) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	e.observer = o
}

// Options returns the engine bounds
func (e *Engine) Options() Options {
	return e.opts
}

// eventOutcome is the map-step output for one event
type eventOutcome struct {
	trades []Trade
	skip   *Skip
}

// Run replays ds through cfg. Events are processed in parallel and reduced
// strictly in chronological order, so identical inputs give identical
// results.
func (e *Engine) Run(ctx context.Context, ds Dataset, cfg *config.ScoringConfig) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backtest: nil config")
	}
	if err := e.opts.Validate(); err != nil {
		return nil, fmt.Errorf("backtest %s: %w", cfg.Name, err)
	}

	// Step 1: window and order the events
	events := e.window(ds)
	e.observer.RunStarted(cfg.Name, len(events))

	log.Debug().
		Str("config", cfg.Name).
		Int("events", len(events)).
		Int("workers", e.opts.Workers).
		Msg("Starting backtest")

	// Step 2: parallel map
	scorer := composite.NewScorer(cfg)
	sizer := sizing.NewSizer(cfg.Sizing)
	outcomes := make([]eventOutcome, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range events {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.process(events[i], scorer, sizer)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("backtest %s: %w", cfg.Name, err)
	}

	// Step 3: sequential reduce
	result := &Result{
		Config:      cfg.Name,
		Fingerprint: cfg.Fingerprint(),
		Start:       e.opts.Start,
		End:         e.opts.End,
		Events:      len(events),
		Trades:      make([]Trade, 0),
		Skips:       make([]Skip, 0),
	}
	for i, out := range outcomes {
		result.Trades = append(result.Trades, out.trades...)
		if out.skip != nil {
			result.Skips = append(result.Skips, *out.skip)
		}
		e.observer.EventProcessed(cfg.Name, i, len(events), out.trades, out.skip)
	}

	// Step 4: aggregate
	result.Stats = perf.Calculate(result.PnLs())
	e.observer.RunFinished(cfg.Name, result)

	log.Info().
		Str("config", cfg.Name).
		Int("events", result.Events).
		Int("trades", result.Stats.Trades).
		Int("skips", len(result.Skips)).
		Float64("total_pnl", result.Stats.TotalPnL).
		Float64("sharpe", result.Stats.Sharpe).
		Msg("Backtest completed")

	return result, nil
}

// window filters events to [Start, End] and sorts them by date, then symbol
func (e *Engine) window(ds Dataset) []Event {
	events := make([]Event, 0, len(ds))
	for _, ev := range ds {
		if !e.opts.Start.IsZero() && ev.Date.Before(e.opts.Start) {
			continue
		}
		if !e.opts.End.IsZero() && ev.Date.After(e.opts.End) {
			continue
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Symbol < events[j].Symbol
	})
	return events
}

// process scores, selects, sizes and simulates one event. It touches no
// shared state.
func (e *Engine) process(ev Event, scorer *composite.Scorer, sizer *sizing.Sizer) eventOutcome {
	skip := func(reason string) eventOutcome {
		return eventOutcome{skip: &Skip{Symbol: ev.Symbol, Date: ev.Date, Reason: reason}}
	}

	if len(ev.Candidates) == 0 {
		return skip("no candidate strategies")
	}

	v := scorer.ClassifyVRP(vrp.Input{
		ImpliedMovePct:  ev.ImpliedMovePct,
		HistoricalMoves: ev.HistoricalMoves,
	})
	if v.Excluded() {
		return skip(fmt.Sprintf("vrp %s: %s", v.Tier, v.Reason))
	}

	ranking := scorer.Rank(ev.Candidates, v)
	if len(ranking.Eligible()) == 0 {
		return skip(noEligibleReason(ranking))
	}

	cfg := scorer.Config()
	sized := sizer.SizeSelection(ranking, cfg.MaxPositions, e.opts.Capital)

	trades := make([]Trade, 0, len(sized))
	for _, s := range sized {
		if s.Recommendation.Contracts <= 0 {
			continue
		}
		trades = append(trades, simulate(ev, s))
	}
	if len(trades) == 0 {
		return skip("selected strategies sized to zero contracts")
	}
	return eventOutcome{trades: trades}
}

func noEligibleReason(r composite.Ranking) string {
	if len(r.Ranked) == 0 {
		return fmt.Sprintf("no scorable strategies (%d excluded)", len(r.Excluded))
	}
	best := r.Ranked[0]
	return fmt.Sprintf("no eligible strategy, best %.1f %s", best.Final, best.Gates.Reason)
}

// simulate holds the position to expiration with the underlying moved by the
// realized percentage
func simulate(ev Event, s sizing.Sized) Trade {
	st := s.Scored.Strategy
	exit := decimal.NewFromFloat(ev.Price).
		Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(ev.RealizedMovePct).Div(decimal.NewFromInt(100)))).
		InexactFloat64()

	perContract := st.PayoffAt(exit)
	pnl := decimal.NewFromInt(int64(s.Recommendation.Contracts)).
		Mul(decimal.NewFromFloat(perContract)).
		Round(2)

	return Trade{
		Symbol:          ev.Symbol,
		Date:            ev.Date,
		Kind:            st.Kind,
		Rank:            s.Scored.Rank,
		Score:           s.Scored.Final,
		Contracts:       s.Recommendation.Contracts,
		Fallback:        s.Recommendation.Fallback,
		Credit:          st.Credit,
		MaxLoss:         st.MaxLoss,
		EntryPrice:      ev.Price,
		ExitPrice:       exit,
		RealizedMovePct: ev.RealizedMovePct,
		PnLPerContract:  perContract,
		PnL:             pnl.InexactFloat64(),
		Rationale:       s.Scored.Rationale.String(),
	}
}
