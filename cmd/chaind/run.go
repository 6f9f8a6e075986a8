package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fathomlabs/chaind/internal/chain"
	"github.com/fathomlabs/chaind/internal/config"
	"github.com/fathomlabs/chaind/internal/harness"
	"github.com/fathomlabs/chaind/internal/library"
	"github.com/fathomlabs/chaind/internal/logging"
	"github.com/fathomlabs/chaind/internal/registry"
	"github.com/fathomlabs/chaind/internal/tasks"
)

var (
	runRepo    string
	runMode    string
	runFile    string
	runJSON    bool
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run <chain>",
	Short: "Run a chain locally without the daemon",
	Long: `Run a chain against a repository and print the result.

Examples:
  # Simulate the discovery chain against the current directory
  chaind run discovery

  # Run the full analysis live against a specific repository
  chaind run full_analysis --repo /path/to/repo --mode live

  # Run a chain defined in a YAML file
  chaind run --file ./my-chain.yaml

  # Machine-readable output
  chaind run security_scan --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChain,
}

func init() {
	runCmd.Flags().StringVar(&runRepo, "repo", ".", "repository root to run against")
	runCmd.Flags().StringVar(&runMode, "mode", "", "execution mode: dry_run, simulated, or live (default from config)")
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "run a chain definition from a YAML file instead of by name")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full result as JSON")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "log step execution")
}

func runChain(cmd *cobra.Command, args []string) error {
	if runFile == "" && len(args) == 0 {
		return fmt.Errorf("a chain name or --file is required")
	}
	if runFile != "" && len(args) > 0 {
		return fmt.Errorf("pass a chain name or --file, not both")
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	mode := chain.Mode(cfg.Harness.DefaultMode)
	if runMode != "" {
		mode = chain.Mode(runMode)
		if !chain.ValidMode(mode) {
			return fmt.Errorf("unknown mode %q (want dry_run, simulated, or live)", runMode)
		}
	}

	repo, err := filepath.Abs(runRepo)
	if err != nil {
		return fmt.Errorf("resolving repository root: %w", err)
	}

	logger := zap.NewNop()
	if runVerbose {
		logCfg := cfg.Logging
		if logCfg == nil {
			logCfg = logging.DefaultConfig()
		}
		logCfg.Format = "console"
		logger, err = logging.New(logCfg, nil)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		defer logging.Sync(logger)
	}

	var def *chain.Definition
	if runFile != "" {
		def, err = library.LoadFile(runFile)
		if err != nil {
			return fmt.Errorf("loading chain file %s: %w", runFile, err)
		}
	} else {
		def, err = resolveChain(args[0], cfg, logger)
		if err != nil {
			return err
		}
	}

	reg := registry.New()
	if err := tasks.RegisterBuiltins(reg); err != nil {
		return fmt.Errorf("registering built-in tasks: %w", err)
	}
	exec := harness.NewExecutor(reg, logger, harness.Options{
		ScopeRoots:    cfg.Harness.ScopeRoots,
		LiveRateLimit: cfg.Harness.LiveRateLimit,
		LiveRateBurst: cfg.Harness.LiveRateBurst,
	})
	orch := chain.NewOrchestrator(exec, logger)

	result, err := orch.ExecuteChain(cmd.Context(), def, repo, mode)
	if err != nil {
		return err
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	} else {
		fmt.Println(chain.Summarize(result))
	}

	if result.Status != chain.StopCompleted {
		os.Exit(1)
	}
	return nil
}

// resolveChain finds a definition by name: built-in template first, then the
// custom chain library.
func resolveChain(name string, cfg *config.Config, logger *zap.Logger) (*chain.Definition, error) {
	if slices.Contains(chain.TemplateNames(), name) {
		return chain.NewTemplate(name)
	}

	lib, err := library.New(cfg.Library.ChainsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("loading chain library: %w", err)
	}
	if def, ok := lib.Lookup(name); ok {
		return def, nil
	}
	return nil, fmt.Errorf("unknown chain %q (run 'chaind chains' to list available chains)", name)
}
