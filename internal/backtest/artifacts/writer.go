// Package artifacts reads backtest datasets and writes backtest artifacts to
// disk. The backtest engine itself never touches the filesystem.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/report/perf"
)

// Clock provides time for artifact naming and report headers
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using system time
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// Writer handles writing backtest artifacts to a dated directory
type Writer struct {
	outputDir string
	dateDir   string
	clock     Clock
}

// NewWriter creates a writer under outputDir/YYYY-MM-DD; nil clock selects
// RealClock
func NewWriter(outputDir string, clock Clock) *Writer {
	if clock == nil {
		clock = RealClock{}
	}
	dateDir := clock.Now().Format("2006-01-02")
	return &Writer{
		outputDir: filepath.Join(outputDir, dateDir),
		dateDir:   dateDir,
		clock:     clock,
	}
}

// OutputDir returns the full output directory path
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// TradesPath returns the JSONL path for one configuration
func (w *Writer) TradesPath(config string) string {
	return filepath.Join(w.outputDir, fmt.Sprintf("%s_trades.jsonl", safeName(config)))
}

// WriteTrades writes one trade per line followed by a summary line
func (w *Writer) WriteTrades(res *backtest.Result) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := w.TradesPath(res.Config)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create trades file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, trade := range res.Trades {
		if err := enc.Encode(trade); err != nil {
			return "", fmt.Errorf("failed to write trade: %w", err)
		}
	}

	summary := struct {
		Type        string          `json:"type"`
		Config      string          `json:"config"`
		Fingerprint string          `json:"config_fingerprint"`
		Events      int             `json:"events"`
		Skips       []backtest.Skip `json:"skips"`
		Stats       perf.Stats      `json:"stats"`
	}{"summary", res.Config, res.Fingerprint, res.Events, res.Skips, res.Stats}
	if err := enc.Encode(summary); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	return path, nil
}

// WriteSummaryJSON writes the full comparison as indented JSON
func (w *Writer) WriteSummaryJSON(cmp *backtest.Comparison) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, "summary.json")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cmp); err != nil {
		return "", fmt.Errorf("failed to encode summary JSON: %w", err)
	}
	return path, nil
}

// WriteReport writes the markdown comparison report
func (w *Writer) WriteReport(cmp *backtest.Comparison) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, "report.md")
	if err := os.WriteFile(path, []byte(w.RenderReport(cmp)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// WriteAll writes trades for every result, the summary JSON and the report.
// Returns the paths keyed by artifact name.
func (w *Writer) WriteAll(cmp *backtest.Comparison) (map[string]string, error) {
	paths := make(map[string]string)
	for _, res := range cmp.Results {
		p, err := w.WriteTrades(res)
		if err != nil {
			return nil, err
		}
		paths["trades_"+res.Config] = p
	}

	p, err := w.WriteSummaryJSON(cmp)
	if err != nil {
		return nil, err
	}
	paths["summary"] = p

	p, err = w.WriteReport(cmp)
	if err != nil {
		return nil, err
	}
	paths["report"] = p
	return paths, nil
}

// WriteDataset snapshots the replayed dataset next to the report so a run
// can be reproduced from its artifact directory alone
func (w *Writer) WriteDataset(ds backtest.Dataset) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(w.outputDir, "dataset.json")
	if err := SaveDataset(ds, path); err != nil {
		return "", err
	}
	return path, nil
}

// RenderReport builds the markdown report
func (w *Writer) RenderReport(cmp *backtest.Comparison) string {
	var report strings.Builder

	// Header
	report.WriteString("# IV Crush Backtest Comparison\n\n")
	report.WriteString(fmt.Sprintf("**Generated**: %s\n", w.clock.Now().Format("2006-01-02 15:04:05 UTC")))
	report.WriteString(fmt.Sprintf("**Dataset**: `%s`\n", shortHash(cmp.DatasetFingerprint)))
	report.WriteString(fmt.Sprintf("**Configurations**: %d\n\n", len(cmp.Results)))

	// Ranking
	report.WriteString("## Ranking\n\n")
	report.WriteString("| Rank | Config | Trades | Win Rate | Total P&L | Sharpe | Sortino | Max DD | Profit Factor |\n")
	report.WriteString("|-----:|--------|-------:|---------:|----------:|-------:|--------:|-------:|--------------:|\n")
	for _, row := range cmp.Ranked {
		s := row.Stats
		report.WriteString(fmt.Sprintf("| %d | %s | %d | %.1f%% | $%.2f | %.3f | %.3f | $%.2f | %.2f |\n",
			row.Rank, row.Config, s.Trades, s.WinRate*100, s.TotalPnL, s.Sharpe, s.Sortino, s.MaxDrawdown, s.ProfitFactor))
	}
	report.WriteString("\n")

	if best, ok := cmp.Best(); ok {
		report.WriteString(fmt.Sprintf("**Best configuration**: %s (Sharpe %.3f, P&L $%.2f)\n\n",
			best.Config, best.Stats.Sharpe, best.Stats.TotalPnL))
	}

	// Alerts
	report.WriteString("## Alerts\n\n")
	alertCount := 0
	for _, row := range cmp.Ranked {
		for _, a := range row.Alerts {
			report.WriteString(fmt.Sprintf("- **%s** [%s] %s\n", a.Severity, a.Config, a.Message))
			alertCount++
		}
	}
	if alertCount == 0 {
		report.WriteString("No alerts.\n")
	}
	report.WriteString("\n")

	// Per-configuration detail
	report.WriteString("## Configurations\n\n")
	for _, res := range cmp.Results {
		report.WriteString(fmt.Sprintf("### %s\n\n", res.Config))
		report.WriteString(fmt.Sprintf("- **Fingerprint**: `%s`\n", shortHash(res.Fingerprint)))
		report.WriteString(fmt.Sprintf("- **Events**: %d (%d traded, %d skipped)\n",
			res.Events, res.Events-len(res.Skips), len(res.Skips)))
		report.WriteString(fmt.Sprintf("- **Avg Win / Avg Loss**: $%.2f / $%.2f\n\n", res.Stats.AvgWin, res.Stats.AvgLoss))

		if len(res.Skips) > 0 {
			reasons := skipReasons(res.Skips)
			report.WriteString("| Skip reason | Events |\n")
			report.WriteString("|-------------|-------:|\n")
			for _, r := range reasons {
				report.WriteString(fmt.Sprintf("| %s | %d |\n", r.reason, r.count))
			}
			report.WriteString("\n")
		}
	}

	return report.String()
}

type reasonCount struct {
	reason string
	count  int
}

// skipReasons groups skips by the reason prefix before the first colon or
// comma, in first-seen order
func skipReasons(skips []backtest.Skip) []reasonCount {
	out := make([]reasonCount, 0)
	index := make(map[string]int)
	for _, s := range skips {
		key := s.Reason
		if i := strings.IndexAny(key, ":,"); i > 0 {
			key = key[:i]
		}
		if i, ok := index[key]; ok {
			out[i].count++
			continue
		}
		index[key] = len(out)
		out = append(out, reasonCount{reason: key, count: 1})
	}
	return out
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
