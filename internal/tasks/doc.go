// Package tasks provides the built-in agent task implementations behind the
// canonical chain templates.
//
// Each task implements registry.Task: Run performs the real analysis against
// the repository root in its input, and Simulated returns the deterministic
// payload the simulated execution mode hands back without touching the
// filesystem. Tasks read their upstream context from the input map keys the
// chain templates wire up ($.discovery, $.stackmap, ...), tolerating absent
// keys: input resolution omits unknown keys by design, so every task treats
// upstream context as advisory.
package tasks
