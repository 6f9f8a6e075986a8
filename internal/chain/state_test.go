package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInput_EmptyMappingReturnsCopyOfInitialState(t *testing.T) {
	initial := map[string]any{"goal": "audit", "depth": 3}
	state := NewState(nil)

	input := state.ResolveInput("", initial)

	assert.Equal(t, initial, input)

	// Mutating the returned map must not affect the chain's initial state.
	input["goal"] = "mutated"
	input["extra"] = true
	assert.Equal(t, "audit", initial["goal"])
	assert.NotContains(t, initial, "extra")
}

func TestResolveInput_MappedKeysPreferStateOverInitial(t *testing.T) {
	initial := map[string]any{"discovery": "from-initial", "goal": "audit"}
	state := NewState(nil)
	state.SetOutput("discovery", map[string]any{"files": 12})

	input := state.ResolveInput("$.discovery,$.goal", initial)

	require.Len(t, input, 2)
	assert.Equal(t, map[string]any{"files": 12}, input["discovery"])
	assert.Equal(t, "audit", input["goal"])
}

func TestResolveInput_MissingKeysAreSilentlyOmitted(t *testing.T) {
	initial := map[string]any{}
	state := NewState(nil)
	state.SetOutput("discovery", "found")

	input := state.ResolveInput("$.discovery,$.missing", initial)

	assert.Equal(t, map[string]any{"discovery": "found"}, input)
}

func TestResolveInput_LiteralTokenStoredUnderInputKey(t *testing.T) {
	state := NewState(nil)

	input := state.ResolveInput("analyze the auth module", nil)

	assert.Equal(t, map[string]any{"input": "analyze the auth module"}, input)
}

func TestResolveInput_TrimsWhitespaceAroundTokens(t *testing.T) {
	state := NewState(nil)
	state.SetOutput("a", 1)
	state.SetOutput("b", 2)

	input := state.ResolveInput(" $.a , $.b ", nil)

	assert.Equal(t, map[string]any{"a": 1, "b": 2}, input)
}

func TestGetOutput_MissingKeySignalsAbsence(t *testing.T) {
	state := NewState(map[string]any{"seed": true})

	v, ok := state.GetOutput("seed")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = state.GetOutput("nope")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestSnapshot_IsACopy(t *testing.T) {
	state := NewState(map[string]any{"k": "v"})

	snap := state.Snapshot()
	snap["k"] = "changed"

	v, _ := state.GetOutput("k")
	assert.Equal(t, "v", v)
}
