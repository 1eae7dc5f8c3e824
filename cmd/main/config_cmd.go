package main

import (
	"fmt"
	"strings"

	"squeeze-trader/src/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report every problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "configuration OK (symbol=%s mode=%s api_key=%s)\n", cfg.Symbol, cfg.RunMode, cfg.RedactedAPIKey())
			if defaults := cfg.AppliedDefaults(); len(defaults) > 0 {
				fmt.Fprintf(out, "defaults applied: %s\n", strings.Join(defaults, ", "))
			}
			return nil
		},
	})

	var outPath string
	defaults := &cobra.Command{
		Use:   "defaults",
		Short: "Print or write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if outPath != "" {
				return cfg.Save(outPath)
			}
			data, err := yaml.Marshal(cfg.MConfig)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	defaults.Flags().StringVarP(&outPath, "output", "o", "", "write to this file instead of stdout")
	cmd.AddCommand(defaults)
	return cmd
}
