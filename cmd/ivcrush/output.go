package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/sawpanic/ivcrush/internal/application"
	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/score/liquidity"
	"github.com/sawpanic/ivcrush/internal/score/vrp"
)

var (
	good    = color.New(color.FgGreen).SprintFunc()
	okay    = color.New(color.FgCyan).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	bad     = color.New(color.FgRed).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	heading = color.New(color.Bold).SprintFunc()
)

func vrpTier(t vrp.Tier) string {
	switch t {
	case vrp.TierExcellent:
		return good(t)
	case vrp.TierGood:
		return okay(t)
	case vrp.TierMarginal:
		return warn(t)
	case vrp.TierPoor:
		return bad(t)
	}
	return faint(t)
}

func liquidityTier(t liquidity.Tier) string {
	switch t {
	case liquidity.TierExcellent:
		return good(t)
	case liquidity.TierGood:
		return okay(t)
	case liquidity.TierWarning:
		return warn(t)
	}
	return bad(t)
}

func signedMoney(v float64) string {
	s := fmt.Sprintf("$%.2f", v)
	if v < 0 {
		return bad(s)
	}
	return good(s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRanking renders a rank outcome as a table plus the sized positions
func printRanking(w io.Writer, out *application.RankOutcome) {
	v := out.Ranking.VRP
	fmt.Fprintf(w, "%s %s  config=%s  VRP %s (implied %.2f%% / hist %.2f%% = %.2fx)\n\n",
		heading("Ranking"), out.Symbol, out.Config, vrpTier(v.Tier), v.ImpliedMovePct, v.HistoricalAvgMovePct, v.Ratio)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tKIND\tSCORE\tRAW\tPOP\tEDGE\tLIQUIDITY\tELIGIBLE\tREASON")
	for _, s := range out.Ranking.Ranked {
		eligible := bad("no")
		if s.Eligible() {
			eligible = good("yes")
		}
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%.0f%%\t%.3f\t%s\t%s\t%s\n",
			s.Rank, s.Strategy.Kind, s.Final, s.Raw, s.Strategy.POP*100, s.Edge.Edge,
			liquidityTier(s.Liquidity.Tier), eligible, s.Gates.Reason)
	}
	tw.Flush()

	for _, ex := range out.Ranking.Excluded {
		fmt.Fprintf(w, "%s %s: %s\n", faint("excluded"), ex.Strategy.Kind, ex.Reason)
	}

	fmt.Fprintf(w, "\n%s (capital $%.2f)\n", heading("Positions"), out.Capital)
	if len(out.Positions) == 0 {
		fmt.Fprintln(w, warn("  none: no strategy passed the selection gates"))
		return
	}
	for _, p := range out.Positions {
		rec := p.Recommendation
		line := fmt.Sprintf("  #%d %s x%d  max risk $%.2f  kelly %.3f  vrp x%.2f",
			p.Scored.Rank, rec.Kind, rec.Contracts, rec.MaxRisk, rec.KellyFraction, rec.VRPMultiplier)
		if rec.Fallback {
			line += "  " + warn("fallback: "+rec.Reason)
		}
		fmt.Fprintln(w, line)
		if r := p.Scored.Rationale.String(); r != "" {
			fmt.Fprintf(w, "     %s\n", faint(r))
		}
	}
}

// printComparison renders the ranked comparison table and alerts
func printComparison(w io.Writer, out *application.CompareOutcome) {
	cmp := out.Comparison
	fmt.Fprintf(w, "%s  dataset %s\n\n", heading("Backtest comparison"), shortHash(cmp.DatasetFingerprint))

	cached := make(map[string]bool, len(out.Cached))
	for _, name := range out.Cached {
		cached[name] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCONFIG\tTRADES\tWIN%\tTOTAL P&L\tSHARPE\tSORTINO\tMAX DD\tPF\tSOURCE")
	for _, row := range cmp.Ranked {
		st := row.Stats
		source := "run"
		if cached[row.Config] {
			source = "cache"
		}
		if id, ok := out.RunIDs[row.Config]; ok {
			source = "run " + shortHash(id.String())
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.1f\t%s\t%.2f\t%.2f\t$%.2f\t%.2f\t%s\n",
			row.Rank, row.Config, st.Trades, st.WinRate*100, signedMoney(st.TotalPnL),
			st.Sharpe, st.Sortino, st.MaxDrawdown, st.ProfitFactor, faint(source))
	}
	tw.Flush()

	for _, row := range cmp.Ranked {
		for _, a := range row.Alerts {
			sev := warn(a.Severity)
			if a.Severity == "CRITICAL" {
				sev = bad(a.Severity)
			}
			fmt.Fprintf(w, "%s [%s] %s\n", sev, row.Config, a.Message)
		}
	}
	if best, ok := cmp.Best(); ok {
		fmt.Fprintf(w, "\nBest: %s\n", good(best.Config))
	}
}

// printSkips summarizes why events produced no trade
func printSkips(w io.Writer, res *backtest.Result) {
	if len(res.Skips) == 0 {
		return
	}
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, s := range res.Skips {
		reason := s.Reason
		if i := strings.IndexAny(reason, ":,"); i > 0 {
			reason = reason[:i]
		}
		if counts[reason] == 0 {
			order = append(order, reason)
		}
		counts[reason]++
	}
	fmt.Fprintf(w, "\n%s %s (%d events)\n", heading("Skipped"), res.Config, len(res.Skips))
	for _, reason := range order {
		fmt.Fprintf(w, "  %4d  %s\n", counts[reason], reason)
	}
}

// printConfigs lists configurations with their weights
func printConfigs(w io.Writer, configs []*config.ScoringConfig) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPOP\tLIQ\tVRP\tEDGE\tGREEKS\tSIZE\tMIN SCORE\tMAX POS\tVRP PROFILE\tFINGERPRINT")
	for _, c := range configs {
		wt := c.Weights
		fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%d\t%s\t%s\n",
			c.Name, wt.POP, wt.Liquidity, wt.VRP, wt.Edge, wt.Greeks, wt.Size,
			c.MinScore, c.MaxPositions, c.VRPProfile, shortHash(c.Fingerprint()))
	}
	tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
