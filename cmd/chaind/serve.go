package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fathomlabs/chaind/internal/chain"
	"github.com/fathomlabs/chaind/internal/config"
	"github.com/fathomlabs/chaind/internal/harness"
	chainhttp "github.com/fathomlabs/chaind/internal/http"
	"github.com/fathomlabs/chaind/internal/library"
	"github.com/fathomlabs/chaind/internal/logging"
	"github.com/fathomlabs/chaind/internal/notify"
	"github.com/fathomlabs/chaind/internal/registry"
	"github.com/fathomlabs/chaind/internal/store"
	"github.com/fathomlabs/chaind/internal/tasks"
	"github.com/fathomlabs/chaind/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chaind HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		return serve(ctx)
	},
}

// serve starts the daemon and blocks until the context is canceled.
//
// Initialization order: config, telemetry, logger, task registry, harness,
// orchestrator, run store, chain library, HTTP server.
func serve(ctx context.Context) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Protocol:    cfg.Telemetry.Protocol,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRate:  1.0,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	logger, err := logging.New(cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logging.Sync(logger)

	logger.Info("starting chaind",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Address()),
		zap.String("default_mode", cfg.Harness.DefaultMode),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	reg := registry.New()
	if err := tasks.RegisterBuiltins(reg); err != nil {
		return fmt.Errorf("registering built-in tasks: %w", err)
	}
	logger.Info("task registry ready", zap.Strings("tasks", reg.Names()))

	exec := harness.NewExecutor(reg, logger, harness.Options{
		ScopeRoots:    cfg.Harness.ScopeRoots,
		LiveRateLimit: cfg.Harness.LiveRateLimit,
		LiveRateBurst: cfg.Harness.LiveRateBurst,
	})
	orch := chain.NewOrchestrator(exec, logger)

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening run store: %w", err)
	}
	defer st.Close()

	lib, err := library.New(cfg.Library.ChainsDir, logger)
	if err != nil {
		return fmt.Errorf("loading chain library: %w", err)
	}
	if cfg.Library.Watch {
		watcher, err := library.NewWatcher(lib)
		if err != nil {
			logger.Warn("chain library watcher unavailable", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("chain library watcher failed to start", zap.Error(err))
			watcher.Stop()
		} else {
			defer watcher.Stop()
		}
	}

	var notifier chainhttp.Notifier
	if wh := notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout, logger); wh != nil {
		notifier = wh
	}

	srv, err := chainhttp.NewServer(orch, st, lib, notifier, logger, &chainhttp.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		DefaultMode: chain.Mode(cfg.Harness.DefaultMode),
		RateLimit:   cfg.Server.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
