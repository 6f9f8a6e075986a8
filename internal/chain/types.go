package chain

import (
	"context"
	"fmt"
)

// Mode selects how the harness executes a task.
type Mode string

const (
	// ModeDryRun validates preconditions without running the task.
	ModeDryRun Mode = "dry_run"

	// ModeSimulated returns the task's canned simulated output.
	ModeSimulated Mode = "simulated"

	// ModeLive runs the real task implementation.
	ModeLive Mode = "live"
)

// ValidMode reports whether m is a recognized execution mode.
func ValidMode(m Mode) bool {
	switch m {
	case ModeDryRun, ModeSimulated, ModeLive:
		return true
	}
	return false
}

// StopReason is the terminal classification of a chain run.
type StopReason string

const (
	// StopCompleted means every step was attempted and none halted the run.
	StopCompleted StopReason = "completed"

	// StopAgentFailed means a step failed with continue-on-failure disabled.
	StopAgentFailed StopReason = "agent_failed"

	// StopPrecheckFailed is reserved for harness-level precheck halts.
	StopPrecheckFailed StopReason = "precheck_failed"

	// StopCondition is reserved for future stop-condition evaluation.
	StopCondition StopReason = "stop_condition"

	// StopManual means the run was canceled between steps.
	StopManual StopReason = "manual"
)

// TaskStatus is the per-step outcome reported by the harness.
type TaskStatus string

const (
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskStopped   TaskStatus = "stopped"
)

// Step is one node in a chain: a task name plus input/output wiring.
type Step struct {
	// TaskName identifies the agent task to invoke. Must be non-empty.
	TaskName string `json:"task_name"`

	// InputMapping selects prior outputs feeding this step. Grammar: a
	// comma-separated list of $.<key> tokens. Empty means "use the chain's
	// initial state verbatim".
	InputMapping string `json:"input_mapping,omitempty"`

	// OutputKey, when set, stores the task's output under this key in the
	// chain state for later steps.
	OutputKey string `json:"output_key,omitempty"`

	// ContinueOnFailure keeps the chain running past a failure of this step.
	ContinueOnFailure bool `json:"continue_on_failure,omitempty"`
}

// Definition is an immutable chain: ordered steps plus initial state.
// A Definition may be reused across ExecuteChain calls.
type Definition struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Steps        []Step         `json:"steps"`
	InitialState map[string]any `json:"initial_state,omitempty"`
}

// TaskResult is the harness's report for one executed step.
type TaskResult struct {
	TaskName        string         `json:"task_name"`
	Status          TaskStatus     `json:"status"`
	OutputData      map[string]any `json:"output_data,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	ErrorType       string         `json:"error_type,omitempty"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
}

// Result is the orchestrator's terminal output for one chain run.
// It is immutable once returned.
type Result struct {
	ChainName      string         `json:"chain_name"`
	Status         StopReason     `json:"status"`
	CompletedSteps int            `json:"completed_steps"`
	TotalSteps     int            `json:"total_steps"`
	Results        []TaskResult   `json:"results"`
	FinalState     map[string]any `json:"final_state"`
	Error          string         `json:"error,omitempty"`
}

// ExecutionContext carries per-step execution parameters to the harness.
type ExecutionContext struct {
	// RepositoryRoot is the directory the task operates on.
	RepositoryRoot string

	// TaskName is the task being executed.
	TaskName string

	// Mode is the execution mode for this run.
	Mode Mode

	// Caller tags who requested the execution, e.g. "chain:discovery".
	Caller string
}

// Harness executes one task with validated input. Expected failure modes
// (unknown task, precheck rejection, scope violation, execution error) are
// encoded in the returned TaskResult, never raised.
type Harness interface {
	Execute(ctx context.Context, taskName string, input map[string]any, execCtx ExecutionContext) TaskResult
}

// Validate checks structural invariants of a definition.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("chain name is required")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("chain %q has no steps", d.Name)
	}
	for i, s := range d.Steps {
		if s.TaskName == "" {
			return fmt.Errorf("chain %q step %d has no task name", d.Name, i)
		}
	}
	return nil
}
