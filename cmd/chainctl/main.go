// Package main implements the chainctl CLI for operations against a running
// chaind server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the chaind HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chainctl",
	Short: "CLI for chaind HTTP server operations",
	Long: `chainctl is a command-line interface for interacting with a running
chaind server. It can start chain runs, list available chains, and inspect
run history.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9430", "chaind server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(chainsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
}
