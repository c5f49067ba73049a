// Package cmd wires the madbridge binary's cobra subcommands: serve,
// validate-config, and inspect-rules.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	rulesFile  string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "madbridge",
	Short: "MAVLink rule-driven packet intermediary",
	Long:  `madbridge sits between a ground control station and a MAVLink router, applying a configurable set of rules to every packet that passes through.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "ambient config file path (yaml/json/toml, see internal/config)")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "rules.yaml", "rules document path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
