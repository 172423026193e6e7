// Package projection implements the projection runtime (spec component
// C5): at-least-once, idempotent-by-CID event application into a
// read-optimized fold, with a durable cursor so a restart resumes rather
// than replaying from scratch.
//
// A Projection declares its subject patterns and an apply function; the
// Runtime subscribes through internal/transport, advances
// internal/eventlog's projection_cursors row after each successful apply,
// and halts (with exponential backoff across a bounded retry window) on
// persistent failure, surfacing Halted rather than looping
// forever or silently dropping events.
package projection
