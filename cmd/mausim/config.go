package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mausim/config"
)

var configOut string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the configuration, or write it to a file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configOut != "" {
			return cfg.Save(configOut)
		}

		return printConfig(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	configCmd.Flags().StringVarP(&configOut, "out", "o", "",
		"Write the configuration to this path instead of stdout")

	rootCmd.AddCommand(configCmd)
}

func printConfig(w io.Writer, cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}
