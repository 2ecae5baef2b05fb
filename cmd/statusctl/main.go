// Package main implements statusctl, a CLI for querying a running healthwatch.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiKey    string
	version   = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "statusctl",
	Short: "Query and trigger backend health checks on a healthwatch server",
	Long: `statusctl talks to the healthwatch HTTP API.

Examples:
  # Show whether the backend is up
  statusctl status

  # Ask for an immediate check
  statusctl check --api-key pub_123

  # Last 20 outcomes
  statusctl history --limit 20`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("HEALTHWATCH_URL", "http://127.0.0.1:8080"), "healthwatch server URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("HEALTHWATCH_API_KEY"), "API key sent as X-API-Key")
	historyCmd.Flags().Int("limit", 20, "number of records to show (max 500)")
	rootCmd.AddCommand(statusCmd, checkCmd, historyCmd)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
