package chain

import (
	"maps"
	"strings"
)

// State is the mutable key/value store threaded through one chain run.
// It maps output keys to step outputs and resolves each step's input from
// prior outputs or the chain's initial state.
//
// A State belongs to exactly one ExecuteChain call and must never be shared
// across goroutines or reused after the call returns.
type State struct {
	data      map[string]any
	stepIndex int
}

// NewState creates a state seeded with a copy of the initial values.
func NewState(initial map[string]any) *State {
	data := make(map[string]any, len(initial))
	maps.Copy(data, initial)
	return &State{data: data}
}

// literalInputKey holds tokens that don't match the $.<key> pattern.
const literalInputKey = "input"

// ResolveInput computes the input payload for a step.
//
// An empty mapping returns a copy of initialState: callers must not be able
// to mutate the chain's initial state through the returned map, so the copy
// is an invariant rather than an optimization.
//
// Otherwise the mapping is split on commas and each trimmed token is
// interpreted:
//   - "$.<key>" looks up <key> in the accumulated outputs first, then in
//     initialState. A key absent from both is silently omitted.
//   - anything else is treated as a literal string stored under "input".
func (s *State) ResolveInput(mapping string, initialState map[string]any) map[string]any {
	if strings.TrimSpace(mapping) == "" {
		out := make(map[string]any, len(initialState))
		maps.Copy(out, initialState)
		return out
	}

	out := make(map[string]any)
	for _, token := range strings.Split(mapping, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if strings.HasPrefix(token, "$.") && len(token) > 2 {
			key := token[2:]
			if v, ok := s.data[key]; ok {
				out[key] = v
			} else if v, ok := initialState[key]; ok {
				out[key] = v
			}
			// Absent in both: omitted without error.
			continue
		}
		out[literalInputKey] = token
	}
	return out
}

// SetOutput stores a step output under key.
func (s *State) SetOutput(key string, value any) {
	s.data[key] = value
}

// GetOutput returns the output stored under key, and whether it exists.
func (s *State) GetOutput(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

// Snapshot returns a copy of the accumulated outputs.
func (s *State) Snapshot() map[string]any {
	out := make(map[string]any, len(s.data))
	maps.Copy(out, s.data)
	return out
}

// StepIndex returns the index of the step currently executing. Diagnostic
// only.
func (s *State) StepIndex() int {
	return s.stepIndex
}
