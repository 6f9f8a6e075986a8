// Chaind is the chain orchestration daemon.
//
// It runs named agent-task chains against a repository, records the results,
// and serves an HTTP API for starting runs and inspecting history.
//
// Usage:
//
//	# Start the daemon
//	chaind serve
//
//	# Run a chain locally, no daemon needed
//	chaind run discovery --repo /path/to/repo
//
//	# List available chains
//	chaind chains
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chaind",
	Short: "Chain orchestration daemon",
	Long: `chaind executes chains of agent tasks against a repository.

Chains are ordered sequences of named tasks. Each step reads selected
outputs of earlier steps, runs its task through the execution harness,
and stores its output for the steps after it.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chaind by Fathom Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/chaind/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chainsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
