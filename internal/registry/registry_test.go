package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTask struct {
	name string
}

func (s stubTask) Name() string { return s.name }

func (s stubTask) Run(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{"ran": s.name}, nil
}

func (s stubTask) Simulated() map[string]any {
	return map[string]any{"simulated": s.name}
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()

	def := Definition{
		Name:           "REPO_CARTOGRAPHER",
		Description:    "maps the repository",
		RequiredInputs: []string{"repository_root"},
		Permissions:    []string{"read_repo"},
	}
	require.NoError(t, r.Register(def, stubTask{name: "REPO_CARTOGRAPHER"}))

	got, err := r.Lookup("REPO_CARTOGRAPHER")
	require.NoError(t, err)
	assert.Equal(t, def, got)

	impl, ok := r.Implementation("REPO_CARTOGRAPHER")
	assert.True(t, ok)
	assert.Equal(t, "REPO_CARTOGRAPHER", impl.Name())
}

func TestLookup_UnknownTask(t *testing.T) {
	r := New()

	_, err := r.Lookup("GHOST_AGENT")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRegister_InvalidName(t *testing.T) {
	r := New()

	err := r.Register(Definition{Name: "lower_case"}, nil)
	assert.ErrorIs(t, err, ErrInvalidTaskName)

	err = r.Register(Definition{Name: ""}, nil)
	assert.ErrorIs(t, err, ErrInvalidTaskName)
}

func TestRegister_Duplicate(t *testing.T) {
	r := New()

	require.NoError(t, r.Register(Definition{Name: "DOC_SCRIBE"}, nil))
	err := r.Register(Definition{Name: "DOC_SCRIBE"}, nil)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegister_ImplementationNameMismatch(t *testing.T) {
	r := New()

	err := r.Register(Definition{Name: "DOC_SCRIBE"}, stubTask{name: "OTHER"})
	assert.Error(t, err)
}

func TestRegister_MetadataOnly(t *testing.T) {
	r := New()

	require.NoError(t, r.Register(Definition{Name: "VULN_TRIAGE"}, nil))

	_, ok := r.Implementation("VULN_TRIAGE")
	assert.False(t, ok)
}

func TestNames_Sorted(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Definition{Name: "ZETA"}, nil))
	require.NoError(t, r.Register(Definition{Name: "ALPHA"}, nil))

	assert.Equal(t, []string{"ALPHA", "ZETA"}, r.Names())
}
