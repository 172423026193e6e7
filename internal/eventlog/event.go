package eventlog

import (
	"fmt"
	"time"

	"github.com/cimalchemist/alchemist/internal/canon"
	"github.com/cimalchemist/alchemist/internal/cid"
)

// Event is a single immutable record in an aggregate's sequence chain.
// Field layout follows spec §6's wire ordering; the CID is computed over
// every other field via canonicalEnvelope.
type Event struct {
	CID           cid.CID
	Stream        string
	AggregateID   string
	Sequence      int64
	TimestampUTC  time.Time
	CorrelationID string
	CausationID   string // empty means none
	PreviousCID   cid.CID // zero value (cid.Undef) only for the genesis event
	Subject       string
	Payload       canon.Value
}

// IsGenesis reports whether e is the first event of its aggregate's chain.
func (e Event) IsGenesis() bool {
	return e.Sequence == 0
}

// canonicalEnvelope builds the canon.Value this event's CID is derived
// from. The cid field itself is excluded, exactly as spec §3's invariant
// `cid(E) = BLAKE3(canonical_bytes(E \ {cid}))` requires.
func canonicalEnvelope(stream, aggregateID string, sequence int64, ts time.Time, correlationID, causationID string, previousCID cid.CID, subject string, payload canon.Value) canon.Object {
	causation := canon.Value(canon.Null{})
	if causationID != "" {
		causation = canon.String(causationID)
	}
	previous := canon.Value(canon.Null{})
	if previousCID.Defined() {
		previous = canon.String(previousCID.String())
	}
	return canon.NewObject(
		canon.P("aggregate_id", canon.String(aggregateID)),
		canon.P("causation_id", causation),
		canon.P("correlation_id", canon.String(correlationID)),
		canon.P("payload", payload),
		canon.P("previous_cid", previous),
		canon.P("sequence", canon.Int(sequence)),
		canon.P("stream", canon.String(stream)),
		canon.P("subject", canon.String(subject)),
		canon.P("timestamp_utc_nanos", canon.Int(ts.UTC().UnixNano())),
	)
}

// deriveCID computes the content identifier for an about-to-be-appended
// event. Callers pass the fields that will become the stored row; the
// returned CID becomes both its primary key and the previous_cid of its
// successor.
func deriveCID(stream, aggregateID string, sequence int64, ts time.Time, correlationID, causationID string, previousCID cid.CID, subject string, payload canon.Value) (cid.CID, error) {
	env := canonicalEnvelope(stream, aggregateID, sequence, ts, correlationID, causationID, previousCID, subject, payload)
	c, err := cid.Of(cid.DomainEvent, env)
	if err != nil {
		return cid.CID{}, fmt.Errorf("eventlog: derive cid: %w", err)
	}
	return c, nil
}
