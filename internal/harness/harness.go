// Package harness executes single agent tasks on behalf of the orchestrator.
//
// The harness enforces prechecks (task known, required inputs present,
// repository inside the allowed scope) before any task code runs, and encodes
// every expected failure in the returned TaskResult. It never returns a Go
// error from Execute: the orchestrator consumes results as values.
package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fathomlabs/chaind/internal/chain"
	"github.com/fathomlabs/chaind/internal/registry"
)

// Error classifications reported in TaskResult.ErrorType.
const (
	ErrTypeNotFound       = "AgentNotFoundError"
	ErrTypeNotImplemented = "AgentNotImplementedError"
	ErrTypePrecheck       = "PrecheckError"
	ErrTypeScope          = "ScopeError"
	ErrTypeExecution      = "AgentExecutionError"
	ErrTypeMode           = "ModeError"
	ErrTypeRateLimit      = "RateLimitError"
)

// Options configures an Executor.
type Options struct {
	// ScopeRoots restricts which repository roots live tasks may touch.
	// Empty means unrestricted.
	ScopeRoots []string

	// LiveRateLimit caps live task executions per second. Zero disables
	// limiting.
	LiveRateLimit float64

	// LiveRateBurst is the limiter burst size. Defaults to 1 when a rate
	// limit is set.
	LiveRateBurst int
}

// Executor implements chain.Harness against a task registry.
type Executor struct {
	registry   *registry.Registry
	logger     *zap.Logger
	limiter    *rate.Limiter
	scopeRoots []string
}

// NewExecutor creates a harness executor. A nil logger disables logging.
func NewExecutor(reg *registry.Registry, logger *zap.Logger, opts Options) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if opts.LiveRateLimit > 0 {
		burst := opts.LiveRateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.LiveRateLimit), burst)
	}

	roots := make([]string, 0, len(opts.ScopeRoots))
	for _, r := range opts.ScopeRoots {
		if abs, err := filepath.Abs(r); err == nil {
			roots = append(roots, abs)
		}
	}

	return &Executor{
		registry:   reg,
		logger:     logger,
		limiter:    limiter,
		scopeRoots: roots,
	}
}

// Execute runs one task in the requested mode. Expected failures are encoded
// in the result, never raised.
func (e *Executor) Execute(ctx context.Context, taskName string, input map[string]any, execCtx chain.ExecutionContext) chain.TaskResult {
	start := time.Now()

	def, err := e.registry.Lookup(taskName)
	if err != nil {
		return e.fail(taskName, chain.TaskFailed, ErrTypeNotFound, err.Error(), start)
	}

	if missing := missingInputs(def, input); len(missing) > 0 {
		msg := fmt.Sprintf("precheck failed for %s: missing required inputs: %s", taskName, strings.Join(missing, ", "))
		return e.fail(taskName, chain.TaskStopped, ErrTypePrecheck, msg, start)
	}

	if err := e.checkScope(execCtx.RepositoryRoot); err != nil {
		return e.fail(taskName, chain.TaskStopped, ErrTypeScope, err.Error(), start)
	}

	e.logger.Debug("executing task",
		zap.String("task", taskName),
		zap.String("mode", string(execCtx.Mode)),
		zap.String("caller", execCtx.Caller),
	)

	switch execCtx.Mode {
	case chain.ModeDryRun:
		return chain.TaskResult{
			TaskName: taskName,
			Status:   chain.TaskCompleted,
			OutputData: map[string]any{
				"dry_run":   true,
				"task":      taskName,
				"validated": true,
			},
			ExecutionTimeMs: elapsedMs(start),
		}

	case chain.ModeSimulated:
		output := map[string]any{"simulated": true, "task": taskName}
		if impl, ok := e.registry.Implementation(taskName); ok {
			if sim := impl.Simulated(); len(sim) > 0 {
				output = sim
			}
		}
		return chain.TaskResult{
			TaskName:        taskName,
			Status:          chain.TaskCompleted,
			OutputData:      output,
			ExecutionTimeMs: elapsedMs(start),
		}

	case chain.ModeLive:
		return e.executeLive(ctx, taskName, input, start)
	}

	return e.fail(taskName, chain.TaskFailed, ErrTypeMode,
		fmt.Sprintf("unknown execution mode: %q", execCtx.Mode), start)
}

func (e *Executor) executeLive(ctx context.Context, taskName string, input map[string]any, start time.Time) chain.TaskResult {
	impl, ok := e.registry.Implementation(taskName)
	if !ok {
		return e.fail(taskName, chain.TaskFailed, ErrTypeNotImplemented,
			fmt.Sprintf("no live implementation registered for %s", taskName), start)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return e.fail(taskName, chain.TaskFailed, ErrTypeRateLimit, err.Error(), start)
		}
	}

	output, err := impl.Run(ctx, input)
	if err != nil {
		return e.fail(taskName, chain.TaskFailed, ErrTypeExecution, err.Error(), start)
	}

	return chain.TaskResult{
		TaskName:        taskName,
		Status:          chain.TaskCompleted,
		OutputData:      output,
		ExecutionTimeMs: elapsedMs(start),
	}
}

// checkScope verifies the repository root lies under an allowed scope root.
func (e *Executor) checkScope(repoRoot string) error {
	if len(e.scopeRoots) == 0 {
		return nil
	}

	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return fmt.Errorf("scope violation: cannot resolve %q: %w", repoRoot, err)
	}

	for _, root := range e.scopeRoots {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("scope violation: %s is outside allowed roots", abs)
}

func (e *Executor) fail(taskName string, status chain.TaskStatus, errType, msg string, start time.Time) chain.TaskResult {
	e.logger.Warn("task did not complete",
		zap.String("task", taskName),
		zap.String("error_type", errType),
		zap.String("error", msg),
	)
	return chain.TaskResult{
		TaskName:        taskName,
		Status:          status,
		ErrorMessage:    msg,
		ErrorType:       errType,
		ExecutionTimeMs: elapsedMs(start),
	}
}

func missingInputs(def registry.Definition, input map[string]any) []string {
	var missing []string
	for _, key := range def.RequiredInputs {
		if _, ok := input[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
