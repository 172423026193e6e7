package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cimalchemist/alchemist/internal/canon"
	"github.com/cimalchemist/alchemist/internal/cid"
	"github.com/cimalchemist/alchemist/internal/eventlog"
)

// wireEnvelope is the message-body encoding used on the transport. It is
// deliberately distinct from the canonical encoding internal/cid hashes
// over: this is a convenience wire format, not a content-addressing input,
// so ordinary (non-canonical) JSON is fine here.
type wireEnvelope struct {
	CID           string          `json:"cid"`
	Stream        string          `json:"stream"`
	AggregateID   string          `json:"aggregate_id"`
	Sequence      int64           `json:"sequence"`
	TimestampUTC  int64           `json:"timestamp_utc_nanos"`
	CorrelationID string          `json:"correlation_id"`
	CausationID   string          `json:"causation_id,omitempty"`
	PreviousCID   string          `json:"previous_cid,omitempty"`
	Subject       string          `json:"subject"`
	Payload       json.RawMessage `json:"payload"`
}

func encodeEvent(ev eventlog.Event) ([]byte, error) {
	payloadBytes, err := canon.MarshalJSON(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("transport: encode event: %w", err)
	}
	var previousCID string
	if ev.PreviousCID.Defined() {
		previousCID = ev.PreviousCID.String()
	}
	env := wireEnvelope{
		CID:           ev.CID.String(),
		Stream:        ev.Stream,
		AggregateID:   ev.AggregateID,
		Sequence:      ev.Sequence,
		TimestampUTC:  ev.TimestampUTC.UTC().UnixNano(),
		CorrelationID: ev.CorrelationID,
		CausationID:   ev.CausationID,
		PreviousCID:   previousCID,
		Subject:       ev.Subject,
		Payload:       payloadBytes,
	}
	return json.Marshal(env)
}

func decodeEvent(data []byte) (eventlog.Event, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return eventlog.Event{}, fmt.Errorf("transport: decode event: %w", err)
	}

	c, err := cid.Parse(env.CID)
	if err != nil {
		return eventlog.Event{}, fmt.Errorf("transport: decode event: %w", err)
	}
	var previousCID cid.CID
	if env.PreviousCID != "" {
		previousCID, err = cid.Parse(env.PreviousCID)
		if err != nil {
			return eventlog.Event{}, fmt.Errorf("transport: decode event: %w", err)
		}
	}
	payload, err := canon.Decode(env.Payload)
	if err != nil {
		return eventlog.Event{}, fmt.Errorf("transport: decode event: %w", err)
	}

	return eventlog.Event{
		CID:           c,
		Stream:        env.Stream,
		AggregateID:   env.AggregateID,
		Sequence:      env.Sequence,
		TimestampUTC:  time.Unix(0, env.TimestampUTC).UTC(),
		CorrelationID: env.CorrelationID,
		CausationID:   env.CausationID,
		PreviousCID:   previousCID,
		Subject:       env.Subject,
		Payload:       payload,
	}, nil
}
