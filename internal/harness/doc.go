// Package harness provides conformance testing for Alchemist aggregates.
//
// The harness loads YAML-defined scenarios, issues each step as a command
// against an internal/aggregate.Runtime, and records the resulting trace
// for assertion or golden-file comparison.
//
// # Scenario format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	aggregate_id: g1
//	steps:
//	  - kind: Create
//	    args: {}
//	  - kind: AddNode
//	    args: { node_id: a, label: "A" }
//
// # Deterministic testing
//
// The harness tests run scenarios against a fresh SQLite Store in a
// temporary directory and a testutil.WallClock seeded from a fixed epoch,
// so the same scenario produces byte-identical event CIDs across runs —
// the property the S7 golden-file test depends on.
package harness
