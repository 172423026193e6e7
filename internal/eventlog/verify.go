package eventlog

import (
	"context"
	"fmt"

	"github.com/cimalchemist/alchemist/internal/cid"
)

// Verify re-derives the CID of every event committed to stream and checks
// each aggregate's previous_cid chain. It returns the first ChainBreak
// encountered (in commit order), or nil if the whole stream verifies.
func (s *Store) Verify(ctx context.Context, stream string) error {
	events, err := s.Read(ctx, stream, -1, -1)
	if err != nil {
		return fmt.Errorf("eventlog: verify %s: %w", stream, err)
	}

	lastCID := make(map[string]cid.CID)
	lastSeq := make(map[string]int64)

	for index, ev := range events {
		recomputed, err := deriveCID(ev.Stream, ev.AggregateID, ev.Sequence, ev.TimestampUTC, ev.CorrelationID, ev.CausationID, ev.PreviousCID, ev.Subject, ev.Payload)
		if err != nil {
			return fmt.Errorf("eventlog: verify %s: %w", stream, err)
		}
		if !recomputed.Equals(ev.CID) {
			return &ChainBreak{Stream: stream, Index: index, CID: ev.CID, Reason: "recomputed cid does not match stored cid; payload or envelope tampered"}
		}

		if ev.Sequence > 0 {
			prev, seen := lastCID[ev.AggregateID]
			if !seen || lastSeq[ev.AggregateID] != ev.Sequence-1 {
				return &ChainBreak{Stream: stream, Index: index, CID: ev.CID, Reason: "missing predecessor in aggregate chain"}
			}
			if !ev.PreviousCID.Equals(prev) {
				return &ChainBreak{Stream: stream, Index: index, CID: ev.CID, Reason: "previous_cid does not match predecessor's cid"}
			}
		} else if ev.PreviousCID.Defined() {
			return &ChainBreak{Stream: stream, Index: index, CID: ev.CID, Reason: "genesis event carries a non-null previous_cid"}
		}

		lastCID[ev.AggregateID] = ev.CID
		lastSeq[ev.AggregateID] = ev.Sequence
	}

	return nil
}
