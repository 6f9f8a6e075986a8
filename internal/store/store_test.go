package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomlabs/chaind/internal/chain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() *Run {
	now := time.Now()
	return &Run{
		Mode:           chain.ModeSimulated,
		RepositoryRoot: "/tmp/repo",
		Result: &chain.Result{
			ChainName:      "discovery",
			Status:         chain.StopCompleted,
			CompletedSteps: 2,
			TotalSteps:     2,
			Results: []chain.TaskResult{
				{
					TaskName:        "REPO_CARTOGRAPHER",
					Status:          chain.TaskCompleted,
					OutputData:      map[string]any{"file_count": float64(10)},
					ExecutionTimeMs: 12,
				},
				{
					TaskName:        "STACK_ANALYST",
					Status:          chain.TaskCompleted,
					OutputData:      map[string]any{"stacks": []any{"go"}},
					ExecutionTimeMs: 3,
				},
			},
			FinalState: map[string]any{"discovery": map[string]any{"file_count": float64(10)}},
		},
		ExecutionTimeMs: 15,
		StartedAt:       now.Add(-time.Second),
		FinishedAt:      now,
	}
}

func TestRecordAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.RecordRun(ctx, sampleRun())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetRun(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "discovery", got.Result.ChainName)
	assert.Equal(t, chain.StopCompleted, got.Result.Status)
	assert.Equal(t, chain.ModeSimulated, got.Mode)
	assert.Equal(t, 2, got.Result.CompletedSteps)
	require.Len(t, got.Result.Results, 2)
	assert.Equal(t, "REPO_CARTOGRAPHER", got.Result.Results[0].TaskName)
	assert.Equal(t, map[string]any{"file_count": float64(10)}, got.Result.Results[0].OutputData)
	assert.Contains(t, got.Result.FinalState, "discovery")
}

func TestRecordRun_PreservesExplicitID(t *testing.T) {
	s := openTestStore(t)

	run := sampleRun()
	run.ID = "fixed-id"

	id, err := s.RecordRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestRecordRun_FailedRunRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun()
	run.Result.Status = chain.StopAgentFailed
	run.Result.Error = "scanner crashed"
	run.Result.Results[1] = chain.TaskResult{
		TaskName:     "SECRETS_AND_RISK",
		Status:       chain.TaskFailed,
		ErrorMessage: "scanner crashed",
		ErrorType:    "AgentExecutionError",
	}

	id, err := s.RecordRun(ctx, run)
	require.NoError(t, err)

	got, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, chain.StopAgentFailed, got.Result.Status)
	assert.Equal(t, "scanner crashed", got.Result.Error)
	assert.Equal(t, "AgentExecutionError", got.Result.Results[1].ErrorType)
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := sampleRun()
	older.StartedAt = time.Now().Add(-time.Hour)
	_, err := s.RecordRun(ctx, older)
	require.NoError(t, err)

	newer := sampleRun()
	newer.Result.ChainName = "security_scan"
	_, err = s.RecordRun(ctx, newer)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "security_scan", runs[0].ChainName)
	assert.Equal(t, "discovery", runs[1].ChainName)
}

func TestListRuns_RespectsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.RecordRun(ctx, sampleRun())
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
