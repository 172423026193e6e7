// Package bridge implements the async↔interactive bridge (spec component
// C6): a fixed-capacity single-producer/single-consumer queue pair that
// carries projection updates to the interactive (UI) thread and carries
// interactive-originated intents back to the async side.
//
// Each direction enforces spec §5's overflow policy: idempotent event
// classes (e.g. node_moved) coalesce in place when a later update for the
// same key arrives before the consumer drains the earlier one; every
// other class applies backpressure (TrySend reports failure, never a
// silent drop) so the caller can nack upstream.
//
// The queue shape follows the teacher's engine.eventQueue — a
// mutex-guarded slice with a buffered signal channel for context-aware
// blocking receive — generalized here with a bounded capacity and a
// coalescing index, neither of which the teacher's unbounded FIFO needed.
package bridge
