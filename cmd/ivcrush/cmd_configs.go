package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/ivcrush/internal/config"
)

func newConfigsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "List, validate and export scoring configurations",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the presets plus any configurations loaded with --config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), a.catalog.All())
			}
			printConfigs(cmd.OutOrStdout(), a.catalog.All())
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print resolved configurations as JSON")

	validateCmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate YAML configuration files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				configs, err := config.Load(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", bad("FAIL"), path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d configs\n", good("OK"), path, len(configs))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the built-in presets as an editable YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(config.PresetSpecs(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d presets to %s\n", len(config.PresetNames()), args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, validateCmd, exportCmd)
	return cmd
}
