package backtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/report/perf"
)

// ComparisonRow is one configuration's standing in a comparison
type ComparisonRow struct {
	Rank   int          `json:"rank"`
	Config string       `json:"config"`
	Stats  perf.Stats   `json:"stats"`
	Alerts []perf.Alert `json:"alerts"`
}

// Comparison holds results in the order given plus a ranked view
type Comparison struct {
	DatasetFingerprint string          `json:"dataset_fingerprint"`
	Results            []*Result       `json:"results"`
	Ranked             []ComparisonRow `json:"ranked"`
}

// Best returns the top-ranked row, or false when nothing was compared
func (c *Comparison) Best() (ComparisonRow, bool) {
	if c == nil || len(c.Ranked) == 0 {
		return ComparisonRow{}, false
	}
	return c.Ranked[0], true
}

// Compare runs every configuration over the same dataset. Rows are ranked by
// Sharpe, then total P&L, then name.
func (e *Engine) Compare(ctx context.Context, ds Dataset, configs []*config.ScoringConfig) (*Comparison, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("compare: no configurations")
	}
	fp, err := ds.Fingerprint()
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(configs))
	for _, cfg := range configs {
		res, err := e.Run(ctx, ds, cfg)
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		results = append(results, res)
	}
	return NewComparison(fp, results, e.opts.Capital), nil
}

// NewComparison ranks results that were produced over the same dataset.
// Results may come from a cache; alerts are evaluated against capital.
func NewComparison(datasetFingerprint string, results []*Result, capital float64) *Comparison {
	cmp := &Comparison{
		DatasetFingerprint: datasetFingerprint,
		Results:            results,
		Ranked:             make([]ComparisonRow, 0, len(results)),
	}
	thresholds := perf.DefaultAlertThresholds()
	for _, res := range results {
		cmp.Ranked = append(cmp.Ranked, ComparisonRow{
			Config: res.Config,
			Stats:  res.Stats,
			Alerts: perf.CheckAlerts(res.Config, res.Stats, capital, thresholds),
		})
	}
	RankRows(cmp.Ranked)
	return cmp
}

// RankRows sorts rows and assigns 1-based ranks
func RankRows(rows []ComparisonRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Stats, rows[j].Stats
		if a.Sharpe != b.Sharpe {
			return a.Sharpe > b.Sharpe
		}
		if a.TotalPnL != b.TotalPnL {
			return a.TotalPnL > b.TotalPnL
		}
		return rows[i].Config < rows[j].Config
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
}
