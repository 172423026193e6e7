package aggregate

import (
	"github.com/cimalchemist/alchemist/internal/canon"
)

// Command is a request to mutate one aggregate instance.
type Command struct {
	AggregateID string
	Kind        string
	Payload     canon.Object
}

// EventDraft is a candidate event a Handler.Validate produces. The
// runtime assigns Sequence, builds the Subject from the Handler's Domain,
// the command's aggregate id and the draft's Kind, and appends it to the
// log; drafts never carry a CID or sequence themselves, since both are
// runtime-owned.
type EventDraft struct {
	Kind          string // dotted final subject segment, e.g. "node_added"
	CorrelationID string
	CausationID   string
	Payload       canon.Object
}

// EventView is the read-only projection of a committed event a Handler's
// Apply folds into state. It carries the same information as an
// eventlog.Event, but stripped of CID/storage details a pure apply
// function never needs.
type EventView struct {
	Sequence      int64
	Kind          string
	CorrelationID string
	Payload       canon.Object
}

// Handler implements the per-aggregate-family validate/apply pair the
// Runtime dispatches through. S is the folded, in-memory state type for
// that family (e.g. *graph.Graph for the Graph family).
type Handler[S any] interface {
	// Domain names the family for subject construction
	// (events.domain.<Domain>.<aggregate>.<kind>).
	Domain() string

	// Initial returns a fresh, empty state for an aggregate that has no
	// prior events.
	Initial() S

	// Validate checks cmd against state's invariants and returns the
	// candidate events it authorizes, or a *DomainError.
	Validate(state S, cmd Command) ([]EventDraft, error)

	// Apply folds one committed event into state. It must be a pure,
	// total function (spec §4.4's determinism rule): no I/O, no clock
	// reads, no randomness.
	Apply(state S, ev EventView) (S, error)

	// EncodeState serializes state for snapshotting.
	EncodeState(state S) ([]byte, error)

	// DecodeState reconstructs state from bytes produced by EncodeState.
	DecodeState(data []byte) (S, error)
}
