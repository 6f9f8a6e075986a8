package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedHarness returns canned results per task name and records every
// call for input/context assertions.
type scriptedHarness struct {
	results map[string]TaskResult
	calls   []harnessCall
}

type harnessCall struct {
	taskName string
	input    map[string]any
	execCtx  ExecutionContext
}

func (h *scriptedHarness) Execute(_ context.Context, taskName string, input map[string]any, execCtx ExecutionContext) TaskResult {
	h.calls = append(h.calls, harnessCall{taskName: taskName, input: input, execCtx: execCtx})
	if r, ok := h.results[taskName]; ok {
		return r
	}
	return TaskResult{
		TaskName:        taskName,
		Status:          TaskCompleted,
		OutputData:      map[string]any{"task": taskName},
		ExecutionTimeMs: 5,
	}
}

// panickyHarness simulates a task implementation with a programming bug.
type panickyHarness struct{}

func (panickyHarness) Execute(context.Context, string, map[string]any, ExecutionContext) TaskResult {
	panic("index out of range in task")
}

func TestExecuteChain_EmptyChainFailsBeforeHarness(t *testing.T) {
	harness := &scriptedHarness{}
	orch := NewOrchestrator(harness, nil)

	def := &Definition{Name: "empty"}
	result, err := orch.ExecuteChain(context.Background(), def, t.TempDir(), ModeSimulated)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSteps)
	assert.Nil(t, result)
	assert.Empty(t, harness.calls)
}

func TestExecuteChain_MissingRepositoryRootFailsFast(t *testing.T) {
	harness := &scriptedHarness{}
	orch := NewOrchestrator(harness, nil)

	def, err := NewTemplate(TemplateDiscovery)
	require.NoError(t, err)

	result, err := orch.ExecuteChain(context.Background(), def, "/nonexistent/path/for/test", ModeSimulated)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRepositoryRootMissing)
	assert.Nil(t, result)
	assert.Empty(t, harness.calls)
}

func TestExecuteChain_DiscoveryAllStepsSucceed(t *testing.T) {
	harness := &scriptedHarness{}
	orch := NewOrchestrator(harness, nil)

	def, err := NewTemplate(TemplateDiscovery)
	require.NoError(t, err)

	result, err := orch.ExecuteChain(context.Background(), def, t.TempDir(), ModeSimulated)

	require.NoError(t, err)
	assert.Equal(t, StopCompleted, result.Status)
	assert.Equal(t, 4, result.CompletedSteps)
	assert.Equal(t, 4, result.TotalSteps)
	assert.Len(t, result.Results, 4)
	assert.Empty(t, result.Error)

	for _, key := range []string{"discovery", "stackmap", "health", "report"} {
		assert.Contains(t, result.FinalState, key)
	}
}

func TestExecuteChain_HaltsOnFirstFailureByDefault(t *testing.T) {
	harness := &scriptedHarness{
		results: map[string]TaskResult{
			AgentSecretsAndRisk: {
				TaskName:     AgentSecretsAndRisk,
				Status:       TaskFailed,
				ErrorMessage: "scanner crashed",
				ErrorType:    "AgentExecutionError",
			},
		},
	}
	orch := NewOrchestrator(harness, nil)

	def, err := NewTemplate(TemplateSecurityScan)
	require.NoError(t, err)

	result, err := orch.ExecuteChain(context.Background(), def, t.TempDir(), ModeSimulated)

	require.NoError(t, err)
	assert.Equal(t, StopAgentFailed, result.Status)
	assert.Equal(t, 2, result.CompletedSteps)
	assert.Equal(t, 3, result.TotalSteps)
	assert.Len(t, result.Results, 2)
	assert.Equal(t, "scanner crashed", result.Error)

	// The third step is never attempted.
	assert.Len(t, harness.calls, 2)
}

func TestExecuteChain_ContinueOnFailureProceedsAndCompletes(t *testing.T) {
	harness := &scriptedHarness{
		results: map[string]TaskResult{
			"flaky": {TaskName: "flaky", Status: TaskFailed, ErrorMessage: "boom"},
		},
	}
	orch := NewOrchestrator(harness, nil)

	def, err := NewCustomDefinition("tolerant", []Step{
		{TaskName: "flaky", ContinueOnFailure: true, OutputKey: "flaky_out"},
		{TaskName: "steady", OutputKey: "steady_out"},
	}, nil)
	require.NoError(t, err)

	result, err := orch.ExecuteChain(context.Background(), def, t.TempDir(), ModeSimulated)

	require.NoError(t, err)
	assert.Equal(t, StopCompleted, result.Status)
	assert.Equal(t, 2, result.CompletedSteps)
	assert.Len(t, result.Results, 2)

	// The halting-failure slot stays empty on a completed run; the failure
	// remains visible in the per-step results.
	assert.Empty(t, result.Error)
	assert.Equal(t, TaskFailed, result.Results[0].Status)
	assert.Equal(t, TaskCompleted, result.Results[1].Status)

	// Failed step produced no output, so nothing was stored under its key.
	assert.NotContains(t, result.FinalState, "flaky_out")
	assert.Contains(t, result.FinalState, "steady_out")
}

func TestExecuteChain_LastStepFailureWithContinueStillCompletes(t *testing.T) {
	harness := &scriptedHarness{
		results: map[string]TaskResult{
			"only": {TaskName: "only", Status: TaskFailed, ErrorMessage: "boom"},
		},
	}
	orch := NewOrchestrator(harness, nil)

	def, err := NewCustomDefinition("single", []Step{
		{TaskName: "only", ContinueOnFailure: true},
	}, nil)
	require.NoError(t, err)

	result, err := orch.ExecuteChain(context.Background(), def, t.TempDir(), ModeSimulated)

	require.NoError(t, err)
	assert.Equal(t, StopCompleted, result.Status)
	assert.Equal(t, 1, result.CompletedSteps)
	assert.Empty(t, result.Error)
}

func TestExecuteChain_EmptyOutputIsNotStored(t *testing.T) {
	harness := &scriptedHarness{
		results: map[string]TaskResult{
			"quiet": {TaskName: "quiet", Status: TaskCompleted, OutputData: map[string]any{}},
		},
	}
	orch := NewOrchestrator(harness, nil)

	def, err := NewCustomDefinition("quiet-chain", []Step{
		{TaskName: "quiet", OutputKey: "quiet_out"},
	}, nil)
	require.NoError(t, err)

	result, err := orch.ExecuteChain(context.Background(), def, t.TempDir(), ModeSimulated)

	require.NoError(t, err)
	assert.Equal(t, StopCompleted, result.Status)
	assert.NotContains(t, result.FinalState, "quiet_out")
}

func TestExecuteChain_InjectsRepositoryRoot(t *testing.T) {
	harness := &scriptedHarness{}
	orch := NewOrchestrator(harness, nil)
	root := t.TempDir()

	def, err := NewCustomDefinition("rooted", []Step{
		{TaskName: "a", OutputKey: "a_out"},
		{TaskName: "b", InputMapping: "$.a_out"},
	}, map[string]any{"repository_root": "/explicit/override"})
	require.NoError(t, err)

	_, err = orch.ExecuteChain(context.Background(), def, root, ModeSimulated)
	require.NoError(t, err)

	require.Len(t, harness.calls, 2)

	// Step one resolves from initial state, which already carries the key.
	assert.Equal(t, "/explicit/override", harness.calls[0].input["repository_root"])

	// Step two's mapped input lacks the key, so the orchestrator injects it.
	assert.Equal(t, root, harness.calls[1].input["repository_root"])
}

func TestExecuteChain_SetsCallerTagAndMode(t *testing.T) {
	harness := &scriptedHarness{}
	orch := NewOrchestrator(harness, nil)

	def, err := NewTemplate(TemplateTechDebt)
	require.NoError(t, err)

	_, err = orch.ExecuteChain(context.Background(), def, t.TempDir(), ModeDryRun)
	require.NoError(t, err)

	require.NotEmpty(t, harness.calls)
	for _, call := range harness.calls {
		assert.Equal(t, "chain:tech_debt", call.execCtx.Caller)
		assert.Equal(t, ModeDryRun, call.execCtx.Mode)
		assert.Equal(t, call.taskName, call.execCtx.TaskName)
	}
}

func TestExecuteChain_PanicBecomesSyntheticFailedResult(t *testing.T) {
	orch := NewOrchestrator(panickyHarness{}, nil)

	def, err := NewCustomDefinition("buggy", []Step{
		{TaskName: "exploder"},
		{TaskName: "never-reached"},
	}, nil)
	require.NoError(t, err)

	result, err := orch.ExecuteChain(context.Background(), def, t.TempDir(), ModeLive)

	require.NoError(t, err)
	assert.Equal(t, StopAgentFailed, result.Status)
	require.Len(t, result.Results, 1)
	assert.Equal(t, TaskFailed, result.Results[0].Status)
	assert.Equal(t, "index out of range in task", result.Results[0].ErrorMessage)
	assert.Equal(t, "string", result.Results[0].ErrorType)
}

func TestExecuteChain_CancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	harness := &scriptedHarness{}
	orch := NewOrchestrator(harness, nil)

	cancel()

	def, err := NewTemplate(TemplateDiscovery)
	require.NoError(t, err)

	result, err := orch.ExecuteChain(ctx, def, t.TempDir(), ModeSimulated)

	require.NoError(t, err)
	assert.Equal(t, StopManual, result.Status)
	assert.Equal(t, 0, result.CompletedSteps)
	assert.Empty(t, harness.calls)
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestExecuteChain_StepOutputVisibleToLaterSteps(t *testing.T) {
	harness := &scriptedHarness{
		results: map[string]TaskResult{
			"producer": {
				TaskName:        "producer",
				Status:          TaskCompleted,
				OutputData:      map[string]any{"finding": "x"},
				ExecutionTimeMs: 1,
			},
		},
	}
	orch := NewOrchestrator(harness, nil)

	def, err := NewCustomDefinition("pipeline", []Step{
		{TaskName: "producer", OutputKey: "produced"},
		{TaskName: "consumer", InputMapping: "$.produced,$.absent"},
	}, nil)
	require.NoError(t, err)

	_, err = orch.ExecuteChain(context.Background(), def, t.TempDir(), ModeSimulated)
	require.NoError(t, err)

	require.Len(t, harness.calls, 2)
	consumed := harness.calls[1].input
	assert.Equal(t, map[string]any{"finding": "x"}, consumed["produced"])
	assert.NotContains(t, consumed, "absent")
}
