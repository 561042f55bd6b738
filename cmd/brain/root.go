package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "brain",
	Short: "Resilient LLM routing and tiered research",
	Long: `Brain routes completion requests across a prioritized set of LLM
providers, falling back when one is down, over its daily quota or behind an
open circuit breaker.

It also answers research queries by fetching external data sources in
latency tiers and streaming a synthesis as results arrive.

Configuration is read from ~/.config/brain/config.yaml, with project
overrides in .brain.yaml and API keys from the environment.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user and project config)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
