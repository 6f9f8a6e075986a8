package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fathomlabs/chaind/internal/chain"
	chainhttp "github.com/fathomlabs/chaind/internal/http"
	"github.com/fathomlabs/chaind/internal/store"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check chaind server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp chainhttp.HealthResponse
		if err := newClient(5 * time.Second).getJSON("/health", &resp); err != nil {
			return err
		}
		fmt.Printf("Server Status: %s\n", resp.Status)
		fmt.Printf("Server URL: %s\n", serverURL)
		return nil
	},
}

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List chains known to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp chainhttp.ChainsResponse
		if err := newClient(5 * time.Second).getJSON("/api/v1/chains", &resp); err != nil {
			return err
		}
		fmt.Println("Templates:")
		for _, name := range resp.Templates {
			fmt.Printf("  %s\n", name)
		}
		if len(resp.Custom) > 0 {
			fmt.Println("Custom:")
			for _, name := range resp.Custom {
				fmt.Printf("  %s\n", name)
			}
		}
		return nil
	},
}

var (
	runRepo string
	runMode string
	runJSON bool
)

var runCmd = &cobra.Command{
	Use:   "run <chain>",
	Short: "Start a chain run on the server",
	Long: `Start a chain run on the server and print the result.

Examples:
  # Run the discovery chain in simulated mode
  chainctl run discovery --repo /path/to/repo

  # Run live
  chainctl run full_analysis --repo /path/to/repo --mode live`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := chainhttp.RunRequest{
			Mode:           runMode,
			RepositoryRoot: runRepo,
		}

		var resp chainhttp.RunResponse
		path := "/api/v1/chains/" + url.PathEscape(args[0]) + "/runs"
		if err := newClient(10 * time.Minute).postJSON(path, req, &resp); err != nil {
			return err
		}

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		fmt.Println(chain.Summarize(&chain.Result{
			ChainName:      resp.ChainName,
			Status:         resp.Status,
			CompletedSteps: resp.CompletedSteps,
			TotalSteps:     resp.TotalSteps,
			Results:        resp.Steps,
			FinalState:     resp.FinalState,
			Error:          resp.Error,
		}))
		fmt.Printf("Run ID: %s\n", resp.RunID)
		return nil
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "List recent runs or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(10 * time.Second)

		if len(args) == 1 {
			var run store.Run
			if err := c.getJSON("/api/v1/runs/"+url.PathEscape(args[0]), &run); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		var runs []store.Summary
		if err := c.getJSON(fmt.Sprintf("/api/v1/runs?limit=%d", runsLimit), &runs); err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%s  %-18s %-13s %-9s %d/%d  %s\n",
				r.ID, r.ChainName, r.Status, r.Mode,
				r.CompletedSteps, r.TotalSteps,
				r.StartedAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runRepo, "repo", "", "repository root on the server (required)")
	runCmd.Flags().StringVar(&runMode, "mode", "", "execution mode: dry_run, simulated, or live")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full result as JSON")
	_ = runCmd.MarkFlagRequired("repo")

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
}
