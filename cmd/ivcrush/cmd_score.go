package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/ivcrush/internal/application"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		input        string
		configName   string
		capital      float64
		maxPositions int
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank and size one earnings event's candidate strategies",
		Long: `Reads an event (symbol, implied move, historical moves and candidate
strategies) from a JSON or YAML file, ranks the candidates under one
configuration and sizes the selection with fractional Kelly.`,
		Example: "  ivcrush score --input acme.json --config-name vrp_dominant --capital 50000",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := loadRankInput(input)
			if err != nil {
				return err
			}
			cfg, err := a.catalog.Get(configName)
			if err != nil {
				return err
			}

			out, err := application.Rank(cmd.Context(), cfg, in, capital, maxPositions, a.runtime.Workers, nil)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printRanking(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Event file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&configName, "config-name", "balanced", "Scoring configuration")
	cmd.Flags().Float64Var(&capital, "capital", 100000, "Capital available for sizing, dollars")
	cmd.Flags().IntVar(&maxPositions, "max-positions", 0, "Positions to size (0 uses the configuration's limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func loadRankInput(path string) (application.RankInput, error) {
	var in application.RankInput
	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("failed to read event %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&in)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&in)
	}
	if err != nil {
		return in, fmt.Errorf("failed to decode event %s: %w", path, err)
	}
	return in, nil
}
