package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/mausim/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mausim",
	Short: "MAUSim simulates the match-action units of a packet pipe.",
	Long: `MAUSim simulates the match-action units of a packet pipe. ` +
		`It runs packet headers through the configured stages, looks up ` +
		`keys in the TCAMs of a stage and prints configurations.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the pipe configuration JSON file")
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}

	return config.Load(configPath)
}
