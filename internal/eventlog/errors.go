package eventlog

import (
	"errors"
	"fmt"

	"github.com/cimalchemist/alchemist/internal/cid"
)

// ConcurrencyConflict is returned by Append when the supplied expected_seq
// does not match the aggregate's current head sequence. CurrentSeq is the
// sequence the aggregate's next event would receive at the time of the
// conflict (its stored head + 1) so the caller can reload and retry (spec
// §4.4 step 5).
type ConcurrencyConflict struct {
	AggregateID string
	Expected    int64
	CurrentSeq  int64
}

func (e *ConcurrencyConflict) Error() string {
	return fmt.Sprintf("eventlog: concurrency conflict on aggregate %s: expected_seq=%d current_seq=%d", e.AggregateID, e.Expected, e.CurrentSeq)
}

// IsConcurrencyConflict reports whether err is (or wraps) a ConcurrencyConflict.
func IsConcurrencyConflict(err error) bool {
	var cc *ConcurrencyConflict
	return errors.As(err, &cc)
}

// ChainBreak is returned by Verify when an event's stored previous_cid does
// not match the recomputed CID of its predecessor, or when a recomputed CID
// does not match the stored cid. Index is the event's position (0-based)
// within the stream's commit order.
type ChainBreak struct {
	Stream string
	Index  int
	CID    cid.CID
	Reason string
}

func (e *ChainBreak) Error() string {
	return fmt.Sprintf("eventlog: chain break in stream %s at index %d (cid=%s): %s", e.Stream, e.Index, e.CID, e.Reason)
}

// IsChainBreak reports whether err is (or wraps) a ChainBreak.
func IsChainBreak(err error) bool {
	var cb *ChainBreak
	return errors.As(err, &cb)
}

// AggregateArchived is returned by Append when the target aggregate has
// already processed an Archived event; spec §4.2's state machine forbids
// further appends once an aggregate transitions Live → Archived.
type AggregateArchived struct {
	AggregateID string
}

func (e *AggregateArchived) Error() string {
	return fmt.Sprintf("eventlog: aggregate %s is archived; no further appends permitted", e.AggregateID)
}

// IsAggregateArchived reports whether err is (or wraps) an AggregateArchived.
func IsAggregateArchived(err error) bool {
	var aa *AggregateArchived
	return errors.As(err, &aa)
}
