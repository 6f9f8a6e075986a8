// Package chain implements the chain orchestration engine: ordered execution
// of named agent tasks with state threading between steps.
//
// # Overview
//
// A chain is an ordered list of steps. Each step names an agent task, an
// optional input mapping over prior step outputs, an optional output key, and
// a continue-on-failure flag. The Orchestrator drives a Definition through a
// private State, calling the execution harness once per step and assembling a
// Result describing the run.
//
// # Execution model
//
// Steps run strictly sequentially; later steps may depend on earlier steps'
// outputs, so there is no parallelism inside one ExecuteChain call. The only
// blocking operation is the harness call itself. Cancellation is checked at
// step boundaries, never mid-step.
//
// A State instance is owned by exactly one ExecuteChain call. It must never
// be shared across goroutines or reused after the call returns; the final
// snapshot is copied into Result.FinalState.
//
// # Failure model
//
// Expected failures (unknown task, precheck rejection, scope violation, task
// error) are values: the harness encodes them in TaskResult.Status and the
// error fields. Unexpected panics from a misbehaving task are recovered at
// the step boundary and converted to a synthetic failed TaskResult, so one
// bad step never crashes a chain run. Only setup problems (empty chain,
// missing repository root) surface as Go errors from ExecuteChain.
package chain
