package harness

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomlabs/chaind/internal/chain"
	"github.com/fathomlabs/chaind/internal/registry"
)

type fakeTask struct {
	name   string
	output map[string]any
	err    error
	sim    map[string]any
}

func (f fakeTask) Name() string { return f.name }

func (f fakeTask) Run(context.Context, map[string]any) (map[string]any, error) {
	return f.output, f.err
}

func (f fakeTask) Simulated() map[string]any { return f.sim }

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()

	require.NoError(t, r.Register(registry.Definition{
		Name:           "REPO_CARTOGRAPHER",
		RequiredInputs: []string{"repository_root"},
	}, fakeTask{
		name:   "REPO_CARTOGRAPHER",
		output: map[string]any{"files": 42},
		sim:    map[string]any{"files": 1, "simulated": true},
	}))

	require.NoError(t, r.Register(registry.Definition{
		Name:           "SECRETS_AND_RISK",
		RequiredInputs: []string{"repository_root", "discovery"},
	}, fakeTask{
		name: "SECRETS_AND_RISK",
		err:  errors.New("scanner crashed"),
	}))

	require.NoError(t, r.Register(registry.Definition{Name: "VULN_TRIAGE"}, nil))

	return r
}

func execCtx(mode chain.Mode, root string) chain.ExecutionContext {
	return chain.ExecutionContext{
		RepositoryRoot: root,
		Mode:           mode,
		Caller:         "chain:test",
	}
}

func TestExecute_UnknownTask(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{})

	res := e.Execute(context.Background(), "GHOST", map[string]any{}, execCtx(chain.ModeLive, t.TempDir()))

	assert.Equal(t, chain.TaskFailed, res.Status)
	assert.Equal(t, ErrTypeNotFound, res.ErrorType)
	assert.Contains(t, res.ErrorMessage, "GHOST")
}

func TestExecute_PrecheckMissingInput(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{})

	res := e.Execute(context.Background(), "SECRETS_AND_RISK",
		map[string]any{"repository_root": "/tmp/repo"},
		execCtx(chain.ModeLive, "/tmp/repo"))

	assert.Equal(t, chain.TaskStopped, res.Status)
	assert.Equal(t, ErrTypePrecheck, res.ErrorType)
	assert.Contains(t, res.ErrorMessage, "discovery")
}

func TestExecute_ScopeViolation(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{ScopeRoots: []string{"/allowed/projects"}})

	res := e.Execute(context.Background(), "REPO_CARTOGRAPHER",
		map[string]any{"repository_root": "/etc"},
		execCtx(chain.ModeLive, "/etc"))

	assert.Equal(t, chain.TaskStopped, res.Status)
	assert.Equal(t, ErrTypeScope, res.ErrorType)
}

func TestExecute_ScopeAllowsNestedRepo(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{ScopeRoots: []string{"/allowed"}})

	res := e.Execute(context.Background(), "REPO_CARTOGRAPHER",
		map[string]any{"repository_root": "/allowed/projects/app"},
		execCtx(chain.ModeDryRun, "/allowed/projects/app"))

	assert.Equal(t, chain.TaskCompleted, res.Status)
}

func TestExecute_DryRunValidatesOnly(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{})

	res := e.Execute(context.Background(), "REPO_CARTOGRAPHER",
		map[string]any{"repository_root": "/tmp/repo"},
		execCtx(chain.ModeDryRun, "/tmp/repo"))

	assert.Equal(t, chain.TaskCompleted, res.Status)
	assert.Equal(t, true, res.OutputData["dry_run"])
	// The real task never ran.
	assert.NotContains(t, res.OutputData, "files")
}

func TestExecute_SimulatedUsesTaskPayload(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{})

	res := e.Execute(context.Background(), "REPO_CARTOGRAPHER",
		map[string]any{"repository_root": "/tmp/repo"},
		execCtx(chain.ModeSimulated, "/tmp/repo"))

	assert.Equal(t, chain.TaskCompleted, res.Status)
	assert.Equal(t, map[string]any{"files": 1, "simulated": true}, res.OutputData)
}

func TestExecute_SimulatedWithoutImplementationUsesGenericPayload(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{})

	res := e.Execute(context.Background(), "VULN_TRIAGE",
		map[string]any{}, execCtx(chain.ModeSimulated, "/tmp/repo"))

	assert.Equal(t, chain.TaskCompleted, res.Status)
	assert.Equal(t, true, res.OutputData["simulated"])
	assert.Equal(t, "VULN_TRIAGE", res.OutputData["task"])
}

func TestExecute_LiveSuccess(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{LiveRateLimit: 100})

	res := e.Execute(context.Background(), "REPO_CARTOGRAPHER",
		map[string]any{"repository_root": "/tmp/repo"},
		execCtx(chain.ModeLive, "/tmp/repo"))

	assert.Equal(t, chain.TaskCompleted, res.Status)
	assert.Equal(t, map[string]any{"files": 42}, res.OutputData)
}

func TestExecute_LiveTaskErrorBecomesFailedResult(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{})

	res := e.Execute(context.Background(), "SECRETS_AND_RISK",
		map[string]any{"repository_root": "/tmp/repo", "discovery": map[string]any{}},
		execCtx(chain.ModeLive, "/tmp/repo"))

	assert.Equal(t, chain.TaskFailed, res.Status)
	assert.Equal(t, ErrTypeExecution, res.ErrorType)
	assert.Equal(t, "scanner crashed", res.ErrorMessage)
}

func TestExecute_LiveWithoutImplementation(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{})

	res := e.Execute(context.Background(), "VULN_TRIAGE",
		map[string]any{}, execCtx(chain.ModeLive, "/tmp/repo"))

	assert.Equal(t, chain.TaskFailed, res.Status)
	assert.Equal(t, ErrTypeNotImplemented, res.ErrorType)
}

func TestExecute_UnknownMode(t *testing.T) {
	e := NewExecutor(newTestRegistry(t), nil, Options{})

	res := e.Execute(context.Background(), "REPO_CARTOGRAPHER",
		map[string]any{"repository_root": "/tmp/repo"},
		execCtx(chain.Mode("teleport"), "/tmp/repo"))

	assert.Equal(t, chain.TaskFailed, res.Status)
	assert.Equal(t, ErrTypeMode, res.ErrorType)
}
