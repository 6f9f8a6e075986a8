package http

import "github.com/fathomlabs/chaind/internal/chain"

// RunRequest is the body for POST /api/v1/chains/:name/runs.
type RunRequest struct {
	// Mode overrides the server's default execution mode.
	Mode string `json:"mode,omitempty"`

	// RepositoryRoot is the directory the chain operates on. Required.
	RepositoryRoot string `json:"repository_root"`

	// InitialState seeds the chain state before the first step.
	InitialState map[string]any `json:"initial_state,omitempty"`

	// Steps defines an ad-hoc chain when the name matches no template or
	// library entry.
	Steps []chain.Step `json:"steps,omitempty"`
}

// RunResponse is the body returned after a chain run.
type RunResponse struct {
	RunID           string           `json:"run_id"`
	ChainName       string           `json:"chain_name"`
	Status          chain.StopReason `json:"status"`
	CompletedSteps  int              `json:"completed_steps"`
	TotalSteps      int              `json:"total_steps"`
	Steps           []chain.TaskResult `json:"steps"`
	FinalState      map[string]any   `json:"final_state"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	Error           string           `json:"error,omitempty"`
}

// ChainsResponse is the body for GET /api/v1/chains.
type ChainsResponse struct {
	Templates []string `json:"templates"`
	Custom    []string `json:"custom,omitempty"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
