package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/ivcrush/internal/config"
	ivlog "github.com/sawpanic/ivcrush/internal/log"
)

const (
	appName = "ivcrush"
	version = "v1.0.0"
)

// app carries the state every subcommand shares, filled in by the root
// command's PersistentPreRunE
type app struct {
	logLevel   string
	logFormat  string
	configYAML string
	envFile    string

	catalog *config.Catalog
	runtime config.Runtime
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Score, size and backtest earnings IV-crush option strategies",
		Version: version,
		Long: `ivcrush ranks premium-selling option strategies around earnings by
volatility risk premium, liquidity, Kelly edge and greeks, sizes them with
fractional Kelly, and replays historical events to compare scoring
configurations.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level (trace|debug|info|warn|error)")
	flags.StringVar(&a.logFormat, "log-format", string(ivlog.FormatAuto), "Log format (auto|console|json)")
	flags.StringVar(&a.configYAML, "config", "", "YAML file of scoring configurations added to the presets")
	flags.StringVar(&a.envFile, "env", ".env", "Environment file with runtime settings")

	rootCmd.AddCommand(
		newScoreCmd(a),
		newBacktestCmd(a),
		newCompareCmd(a),
		newConfigsCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

// setup configures logging and loads configurations and runtime settings
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := ivlog.Setup(a.logLevel, ivlog.Format(a.logFormat), os.Stderr); err != nil {
		return err
	}

	catalog, err := config.LoadCatalog(a.configYAML)
	if err != nil {
		return err
	}
	a.catalog = catalog

	rt, err := config.LoadRuntime(a.envFile)
	if err != nil {
		return err
	}
	a.runtime = rt

	log.Debug().
		Str("command", cmd.Name()).
		Strs("configs", catalog.Names()).
		Bool("persistence", rt.PersistenceEnabled()).
		Bool("cache", rt.CacheEnabled()).
		Msg("Initialized")
	return nil
}
