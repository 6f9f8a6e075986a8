package chain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Setup errors returned before any step executes.
var (
	// ErrNoSteps indicates a chain with an empty step list.
	ErrNoSteps = errors.New("chain has no steps")

	// ErrRepositoryRootMissing indicates the repository root does not exist.
	ErrRepositoryRootMissing = errors.New("repository root does not exist")
)

// repositoryRootKey is injected into every step input when absent.
const repositoryRootKey = "repository_root"

// Orchestrator drives a chain Definition step by step through a private
// State, delegating task execution to the harness.
//
// Orchestrators hold no mutable state across calls; one instance may serve
// concurrent ExecuteChain calls, each owning its own State.
type Orchestrator struct {
	harness Harness
	logger  *zap.Logger
}

// NewOrchestrator creates an orchestrator using the given harness.
// A nil logger disables logging.
func NewOrchestrator(harness Harness, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{harness: harness, logger: logger}
}

// ExecuteChain runs def against repositoryRoot in the given mode.
//
// Setup problems (empty chain, missing repository root) return an error and
// no Result; the harness is never called. Step failures never surface as
// errors: they are recorded in the Result, which reports AgentFailed when a
// failure halts the run and Completed otherwise. Cancellation is honored
// between steps and yields a Result with status Manual.
//
// CompletedSteps counts steps attempted, including a halting failure.
func (o *Orchestrator) ExecuteChain(ctx context.Context, def *Definition, repositoryRoot string, mode Mode) (*Result, error) {
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("cannot execute chain %q: %w", def.Name, ErrNoSteps)
	}
	if info, err := os.Stat(repositoryRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("cannot execute chain %q: %w: %s", def.Name, ErrRepositoryRootMissing, repositoryRoot)
	}

	runsStarted.WithLabelValues(def.Name).Inc()
	start := time.Now()

	state := NewState(def.InitialState)
	results := make([]TaskResult, 0, len(def.Steps))
	total := len(def.Steps)

	o.logger.Info("chain started",
		zap.String("chain", def.Name),
		zap.String("mode", string(mode)),
		zap.Int("total_steps", total),
	)

	for i, step := range def.Steps {
		// Cancellation takes effect at step boundaries only; an in-flight
		// harness call is never interrupted here.
		select {
		case <-ctx.Done():
			o.logger.Warn("chain canceled",
				zap.String("chain", def.Name),
				zap.Int("completed_steps", len(results)),
			)
			return o.finish(def, StopManual, results, state, total, ctx.Err().Error(), start), nil
		default:
		}

		state.stepIndex = i

		input := state.ResolveInput(step.InputMapping, def.InitialState)
		if _, ok := input[repositoryRootKey]; !ok {
			input[repositoryRootKey] = repositoryRoot
		}

		execCtx := ExecutionContext{
			RepositoryRoot: repositoryRoot,
			TaskName:       step.TaskName,
			Mode:           mode,
			Caller:         "chain:" + def.Name,
		}

		result := o.runStep(ctx, step, input, execCtx)
		results = append(results, result)

		stepDuration.WithLabelValues(step.TaskName, string(result.Status)).
			Observe(float64(result.ExecutionTimeMs) / 1000.0)

		if step.OutputKey != "" && len(result.OutputData) > 0 {
			state.SetOutput(step.OutputKey, result.OutputData)
		}

		if result.Status != TaskCompleted {
			o.logger.Warn("step did not complete",
				zap.String("chain", def.Name),
				zap.String("task", step.TaskName),
				zap.Int("step", i),
				zap.String("status", string(result.Status)),
				zap.String("error", result.ErrorMessage),
			)
			if !step.ContinueOnFailure {
				return o.finish(def, StopAgentFailed, results, state, total, result.ErrorMessage, start), nil
			}
			continue
		}

		o.logger.Debug("step completed",
			zap.String("chain", def.Name),
			zap.String("task", step.TaskName),
			zap.Int("step", i),
			zap.Int64("elapsed_ms", result.ExecutionTimeMs),
		)
	}

	return o.finish(def, StopCompleted, results, state, total, "", start), nil
}

// runStep calls the harness, converting an unexpected panic into a synthetic
// failed TaskResult so one misbehaving task never crashes the chain run.
func (o *Orchestrator) runStep(ctx context.Context, step Step, input map[string]any, execCtx ExecutionContext) (result TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("task panicked",
				zap.String("task", step.TaskName),
				zap.Any("panic", r),
			)
			result = TaskResult{
				TaskName:     step.TaskName,
				Status:       TaskFailed,
				ErrorMessage: fmt.Sprintf("%v", r),
				ErrorType:    fmt.Sprintf("%T", r),
			}
		}
	}()
	return o.harness.Execute(ctx, step.TaskName, input, execCtx)
}

func (o *Orchestrator) finish(def *Definition, status StopReason, results []TaskResult, state *State, total int, errMsg string, start time.Time) *Result {
	runsCompleted.WithLabelValues(def.Name, string(status)).Inc()
	runDuration.WithLabelValues(def.Name).Observe(time.Since(start).Seconds())

	o.logger.Info("chain finished",
		zap.String("chain", def.Name),
		zap.String("status", string(status)),
		zap.Int("completed_steps", len(results)),
		zap.Int("total_steps", total),
	)

	return &Result{
		ChainName:      def.Name,
		Status:         status,
		CompletedSteps: len(results),
		TotalSteps:     total,
		Results:        results,
		FinalState:     state.Snapshot(),
		Error:          errMsg,
	}
}
