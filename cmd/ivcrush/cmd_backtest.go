package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/backtest/artifacts"
	"github.com/sawpanic/ivcrush/internal/config"
	ivlog "github.com/sawpanic/ivcrush/internal/log"
)

// runFlags are shared by backtest and compare
type runFlags struct {
	dataset  string
	capital  float64
	start    string
	end      string
	workers  int
	output   string
	progress bool
	noStore  bool
	asJSON   bool
	timeout  time.Duration
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dataset, "dataset", "d", "", "Dataset of earnings events (JSON array or JSON lines)")
	cmd.Flags().Float64Var(&f.capital, "capital", 100000, "Capital used to size every event, dollars")
	cmd.Flags().StringVar(&f.start, "start", "", "First event date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "Last event date to include (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel workers (0 uses IVCRUSH_WORKERS or all CPUs)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Directory for trade, summary and report artifacts")
	cmd.Flags().BoolVar(&f.progress, "progress", true, "Show a progress bar on a terminal")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "Skip the result cache and run persistence")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the comparison as JSON")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Minute, "Abort the run after this long")
	_ = cmd.MarkFlagRequired("dataset")
}

func (f *runFlags) options(rt config.Runtime) (backtest.Options, error) {
	opts := backtest.DefaultOptions()
	opts.Capital = f.capital
	opts.Workers = rt.Workers
	if f.workers > 0 {
		opts.Workers = f.workers
	}

	var err error
	if opts.Start, err = parseDate("start", f.start); err != nil {
		return opts, err
	}
	if opts.End, err = parseDate("end", f.end); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

func parseDate(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %q is not a YYYY-MM-DD date", name, v)
	}
	return t, nil
}

func newBacktestCmd(a *app) *cobra.Command {
	f := &runFlags{}
	var configName string

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a dataset through one scoring configuration",
		Example: "  ivcrush backtest --dataset events.jsonl --config-name balanced --start 2024-01-01\n" +
			"  ivcrush backtest -d events.jsonl --output artifacts/backtest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runComparison(cmd, f, []string{configName})
		},
	}
	cmd.Flags().StringVar(&configName, "config-name", "balanced", "Scoring configuration")
	f.register(cmd)
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	f := &runFlags{}
	var names []string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Replay a dataset through several configurations and rank them",
		Long: `Runs every selected configuration over the same dataset and ranks them
by Sharpe, then total P&L, then name. With --output, writes per-config
trade JSONL, a summary JSON and a markdown report into a dated directory.`,
		Example: "  ivcrush compare -d events.jsonl --configs balanced,vrp_dominant,legacy -o artifacts/backtest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runComparison(cmd, f, names)
		},
	}
	cmd.Flags().StringSliceVar(&names, "configs", nil, "Configurations to compare (default: all)")
	f.register(cmd)
	return cmd
}

// runComparison loads the dataset, runs the configurations through the
// backtest service and prints or writes the results
func (a *app) runComparison(cmd *cobra.Command, f *runFlags, names []string) error {
	// Step 1: inputs
	configs, err := a.catalog.Resolve(compact(names))
	if err != nil {
		return err
	}
	opts, err := f.options(a.runtime)
	if err != nil {
		return err
	}
	ds, err := artifacts.LoadDataset(f.dataset)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// Step 2: backends and observers
	b := &backends{}
	if !f.noStore {
		b = openBackends(ctx, a.runtime, nil)
	}
	defer b.Close()

	progressCfg := ivlog.QuietProgressConfig()
	if f.progress && !f.asJSON && ivlog.IsTerminal(os.Stderr) {
		progressCfg = ivlog.DefaultProgressConfig()
	}
	progress := ivlog.NewBacktestProgress(os.Stderr, progressCfg)

	log.Info().
		Str("dataset", f.dataset).
		Int("events", len(ds)).
		Strs("configs", namesOf(configs)).
		Float64("capital", opts.Capital).
		Msg("Starting backtest comparison")

	// Step 3: run
	out, err := b.service(progress).Compare(ctx, ds, configs, opts)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	// Step 4: report
	if f.output != "" {
		w := artifacts.NewWriter(f.output, artifacts.RealClock{})
		paths, err := w.WriteAll(out.Comparison)
		if err != nil {
			return err
		}
		if paths["dataset"], err = w.WriteDataset(ds); err != nil {
			return err
		}
		log.Info().Str("dir", w.OutputDir()).Int("files", len(paths)).Msg("Artifacts written")
	}

	if f.asJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	printComparison(cmd.OutOrStdout(), out)
	for _, res := range out.Comparison.Results {
		printSkips(cmd.OutOrStdout(), res)
	}
	return nil
}

func compact(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func namesOf(configs []*config.ScoringConfig) []string {
	names := make([]string, len(configs))
	for i, c := range configs {
		names[i] = c.Name
	}
	return names
}
