package projection

import (
	"github.com/cimalchemist/alchemist/internal/eventlog"
)

// Projection declares one read-side fold: the subjects it consumes, the
// state it folds into, and the pure apply step itself. S is the
// projection's own state type, unrelated to any aggregate's folded state
// (internal/aggregate.Handler) — the same events can feed many
// projections, each with independent state.
type Projection[S any] interface {
	// Name identifies this projection's durable cursor row.
	Name() string

	// Patterns lists the subject patterns (internal/transport matching
	// rules) this projection subscribes to.
	Patterns() []string

	// Initial returns the projection's zero-state, used when no cursor
	// (or an empty one) exists yet.
	Initial() S

	// Apply folds one event into state. Spec §4.5 requires at-least-once
	// delivery to be safe: Apply may be called again with an event whose
	// CID was already folded (the Runtime filters most such duplicates
	// via a bounded window of recently applied CIDs, seeded from the
	// cursor's last_cid, but Apply should still tolerate it for defense
	// in depth).
	Apply(state S, ev eventlog.Event) (S, error)

	// EncodeState serializes state for the durable cursor row.
	EncodeState(state S) ([]byte, error)

	// DecodeState reconstructs state from bytes produced by EncodeState.
	DecodeState(data []byte) (S, error)
}
