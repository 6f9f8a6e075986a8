// Package registry maps agent task names to their metadata and
// implementations.
//
// The registry is populated once at process start and injected into the
// execution harness; there is no process-wide singleton. Lookup by name is
// the only operation the orchestration path depends on.
package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Errors for registry operations.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTaskName   = errors.New("invalid task name: must be upper snake case")
	ErrAlreadyRegistered = errors.New("task already registered")
)

// namePattern validates agent task names (REPO_CARTOGRAPHER, DOC_SCRIBE...).
var namePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Definition is the metadata contract for one agent task.
type Definition struct {
	// Name is the unique task identifier.
	Name string `json:"name"`

	// Description explains what the task does.
	Description string `json:"description"`

	// RequiredInputs lists input keys the harness verifies before running.
	RequiredInputs []string `json:"required_inputs,omitempty"`

	// Permissions lists capabilities the task needs (read_repo, scan_content...).
	Permissions []string `json:"permissions,omitempty"`

	// OutputKeys documents the keys the task emits in its output payload.
	OutputKeys []string `json:"output_keys,omitempty"`
}

// Task is the capability interface implemented by agent tasks. Run executes
// the real task; Simulated returns the deterministic payload used by the
// simulated execution mode.
type Task interface {
	Name() string
	Run(ctx context.Context, input map[string]any) (map[string]any, error)
	Simulated() map[string]any
}

// Registry is a thread-safe name-to-task table.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	impls map[string]Task
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		defs:  make(map[string]Definition),
		impls: make(map[string]Task),
	}
}

// Register adds a task definition and its implementation. The implementation
// may be nil for metadata-only registration (dry-run and simulated modes do
// not need one).
func (r *Registry) Register(def Definition, impl Task) error {
	if !namePattern.MatchString(def.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidTaskName, def.Name)
	}
	if impl != nil && impl.Name() != def.Name {
		return fmt.Errorf("implementation name %q does not match definition %q", impl.Name(), def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, def.Name)
	}
	r.defs[def.Name] = def
	if impl != nil {
		r.impls[def.Name] = impl
	}
	return nil
}

// Lookup resolves a task name to its definition.
func (r *Registry) Lookup(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	return def, nil
}

// Implementation returns the registered Task implementation, if any.
func (r *Registry) Implementation(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	impl, ok := r.impls[name]
	return impl, ok
}

// Names returns all registered task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
