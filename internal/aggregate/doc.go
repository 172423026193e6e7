// Package aggregate implements the command-handling runtime (spec
// component C4): load state from snapshot plus replay, validate a command
// against a Handler's invariants, fold the resulting events into state,
// and append the batch to the event log with an optimistic-concurrency
// retry loop.
//
// Runtime is generic over the folded state type S so that one engine
// serves every aggregate family (graph, workflow, identity); only the
// Handler implementation varies per family, grounded on the teacher's
// engine.Executor dispatch-by-kind shape in internal/engine.
package aggregate
