package chain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_CompletedRun(t *testing.T) {
	r := &Result{
		ChainName:      "discovery",
		Status:         StopCompleted,
		CompletedSteps: 2,
		TotalSteps:     2,
		Results: []TaskResult{
			{TaskName: "REPO_CARTOGRAPHER", Status: TaskCompleted, ExecutionTimeMs: 123},
			{TaskName: "STACK_ANALYST", Status: TaskCompleted, ExecutionTimeMs: 7},
		},
	}

	text := Summarize(r)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	assert.Equal(t, "Chain: discovery", lines[0])
	assert.Equal(t, "Status: completed", lines[1])
	assert.Equal(t, "Steps: 2/2 completed", lines[2])
	assert.Equal(t, "  [1] ✓ REPO_CARTOGRAPHER completed (123ms)", lines[3])
	assert.Equal(t, "  [2] ✓ STACK_ANALYST completed (7ms)", lines[4])
}

func TestSummarize_FailedRunShowsErrorAndType(t *testing.T) {
	r := &Result{
		ChainName:      "security_scan",
		Status:         StopAgentFailed,
		CompletedSteps: 2,
		TotalSteps:     3,
		Error:          "scanner crashed",
		Results: []TaskResult{
			{TaskName: "REPO_CARTOGRAPHER", Status: TaskCompleted, ExecutionTimeMs: 40},
			{TaskName: "SECRETS_AND_RISK", Status: TaskFailed, ExecutionTimeMs: 4, ErrorMessage: "scanner crashed", ErrorType: "AgentExecutionError"},
		},
	}

	text := Summarize(r)

	assert.Contains(t, text, "Status: agent_failed")
	assert.Contains(t, text, "Error: scanner crashed")
	assert.Contains(t, text, "  [2] ✗ SECRETS_AND_RISK failed (4ms) AgentExecutionError: scanner crashed")
}
