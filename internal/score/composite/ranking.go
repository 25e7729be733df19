package composite

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/ivcrush/internal/domain/strategy"
	"github.com/sawpanic/ivcrush/internal/score/vrp"
)

// Exclusion is a candidate removed before scoring
type Exclusion struct {
	Strategy strategy.Strategy `json:"strategy"`
	Reason   string            `json:"reason"`
}

// Ranking is the ordered outcome of scoring one underlying's candidates
type Ranking struct {
	VRP      vrp.Result  `json:"vrp"`
	Ranked   []Scored    `json:"ranked"`
	Excluded []Exclusion `json:"excluded,omitempty"`
}

// Eligible returns the ranked strategies that passed every gate, best first
func (r Ranking) Eligible() []Scored {
	out := make([]Scored, 0, len(r.Ranked))
	for _, s := range r.Ranked {
		if s.Eligible() {
			out = append(out, s)
		}
	}
	return out
}

// Top returns at most n eligible strategies
func (r Ranking) Top(n int) []Scored {
	eligible := r.Eligible()
	if n >= 0 && len(eligible) > n {
		eligible = eligible[:n]
	}
	return eligible
}

// QualifyingAverage is the mean final score of the eligible set, 0 when none
// qualify
func (r Ranking) QualifyingAverage() float64 {
	eligible := r.Eligible()
	if len(eligible) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range eligible {
		sum += s.Final
	}
	return sum / float64(len(eligible))
}

// Rank scores every structurally valid candidate and orders them by final
// score, then raw edge, then POP, then input order. When the VRP result
// carries no usable history every candidate is excluded unscored.
func (s *Scorer) Rank(strategies []strategy.Strategy, v vrp.Result) Ranking {
	ranking, valid := s.screen(strategies, v)
	for _, st := range valid {
		ranking.Ranked = append(ranking.Ranked, s.Score(st, v))
	}
	return finishRanking(ranking)
}

// RankContext is Rank with scoring fanned out over ScoreBatch. The ordering
// is identical to Rank for any worker count.
func (s *Scorer) RankContext(ctx context.Context, strategies []strategy.Strategy, v vrp.Result, workers int) (Ranking, error) {
	ranking, valid := s.screen(strategies, v)
	if len(valid) == 0 {
		return finishRanking(ranking), nil
	}

	candidates := make([]Candidate, len(valid))
	for i, st := range valid {
		candidates[i] = Candidate{Strategy: st, VRP: v}
	}
	scored, err := s.ScoreBatch(ctx, candidates, workers)
	if err != nil {
		return Ranking{}, err
	}
	ranking.Ranked = append(ranking.Ranked, scored...)
	return finishRanking(ranking), nil
}

// screen splits candidates into those to score and exclusions
func (s *Scorer) screen(strategies []strategy.Strategy, v vrp.Result) (Ranking, []strategy.Strategy) {
	ranking := Ranking{VRP: v}

	if v.Excluded() {
		for _, st := range strategies {
			ranking.Excluded = append(ranking.Excluded, Exclusion{
				Strategy: cloneStrategy(st),
				Reason:   fmt.Sprintf("%s: %s", v.Tier, v.Reason),
			})
		}
		return ranking, nil
	}

	ranking.Ranked = make([]Scored, 0, len(strategies))
	valid := make([]strategy.Strategy, 0, len(strategies))
	for _, st := range strategies {
		if err := st.Validate(); err != nil {
			log.Warn().Str("strategy", st.Label()).Err(err).Msg("Excluding malformed strategy")
			ranking.Excluded = append(ranking.Excluded, Exclusion{Strategy: cloneStrategy(st), Reason: err.Error()})
			continue
		}
		valid = append(valid, st)
	}
	return ranking, valid
}

func finishRanking(r Ranking) Ranking {
	SortScored(r.Ranked)
	for i := range r.Ranked {
		r.Ranked[i].Rank = i + 1
	}
	return r
}

// SortScored orders scored strategies best first; equal keys keep their
// relative order
func SortScored(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if fa, fb := orderKey(a.Final), orderKey(b.Final); fa != fb {
			return fa > fb
		}
		if ea, eb := orderKey(a.Edge.Edge), orderKey(b.Edge.Edge); ea != eb {
			return ea > eb
		}
		return orderKey(a.Strategy.POP) > orderKey(b.Strategy.POP)
	})
}

func orderKey(x float64) float64 {
	if math.IsNaN(x) {
		return math.Inf(-1)
	}
	return x
}

// Candidate pairs a strategy with the VRP result of its underlying
type Candidate struct {
	Strategy strategy.Strategy
	VRP      vrp.Result
}

// ScoreBatch scores candidates on a bounded worker pool. Results keep input
// order. Scoring is pure, so the only error is context cancellation.
func (s *Scorer) ScoreBatch(ctx context.Context, candidates []Candidate, workers int) ([]Scored, error) {
	if workers < 1 {
		workers = 1
	}

	out := make([]Scored, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.Score(candidates[i].Strategy, candidates[i].VRP)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}
	return out, nil
}
