package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cimalchemist/alchemist/internal/canon"
	"github.com/cimalchemist/alchemist/internal/cid"
)

// Append assigns sequence to a new event on aggregateID's chain, links it
// to the current head via previous_cid, computes its CID, and commits it
// durably. expectedSeq is the sequence the new event must receive; the
// call fails with ConcurrencyConflict if the aggregate's stored head is not
// exactly expectedSeq-1 (spec §4.2, boundary: "append on an empty
// aggregate succeeds only with expected_seq == 0").
//
// Re-appending a payload that canonicalizes to the same CID already stored
// at sequence expectedSeq is a no-op: the existing event is returned, not
// a duplicate. Publication to C3 happens out-of-band by draining outbox
// rows; Append only guarantees the durable half of the two-phase commit.
func (s *Store) Append(ctx context.Context, stream, aggregateID string, expectedSeq int64, subject, correlationID, causationID string, payload canon.Value, now time.Time) (Event, error) {
	if expectedSeq < 0 {
		return Event{}, fmt.Errorf("eventlog: append: expected_seq must be >= 0, got %d", expectedSeq)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: append: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO aggregates(aggregate_id) VALUES (?)`, aggregateID); err != nil {
		return Event{}, fmt.Errorf("eventlog: append: ensure aggregate: %w", err)
	}

	var headSeq int64
	var status string
	if err := tx.QueryRowContext(ctx, `SELECT head_seq, status FROM aggregates WHERE aggregate_id = ?`, aggregateID).Scan(&headSeq, &status); err != nil {
		return Event{}, fmt.Errorf("eventlog: append: load aggregate: %w", err)
	}
	if status == "Archived" {
		return Event{}, &AggregateArchived{AggregateID: aggregateID}
	}

	previousCID, havePrevious, err := lookupEventCID(ctx, tx, aggregateID, expectedSeq-1)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: append: lookup previous: %w", err)
	}
	if expectedSeq > 0 && !havePrevious {
		return Event{}, &ConcurrencyConflict{AggregateID: aggregateID, Expected: expectedSeq, CurrentSeq: headSeq + 1}
	}
	if expectedSeq == 0 {
		previousCID = cid.CID{}
	}

	candidateCID, err := deriveCID(stream, aggregateID, expectedSeq, now, correlationID, causationID, previousCID, subject, payload)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: append: %w", err)
	}

	if existingCID, found, err := lookupEventCID(ctx, tx, aggregateID, expectedSeq); err != nil {
		return Event{}, fmt.Errorf("eventlog: append: lookup existing: %w", err)
	} else if found {
		if existingCID.Equals(candidateCID) {
			existing, err := readEventBySeq(ctx, tx, aggregateID, expectedSeq)
			if err != nil {
				return Event{}, fmt.Errorf("eventlog: append: re-read idempotent event: %w", err)
			}
			return existing, nil
		}
		return Event{}, &ConcurrencyConflict{AggregateID: aggregateID, Expected: expectedSeq, CurrentSeq: headSeq + 1}
	}

	if headSeq != expectedSeq-1 {
		return Event{}, &ConcurrencyConflict{AggregateID: aggregateID, Expected: expectedSeq, CurrentSeq: headSeq + 1}
	}

	payloadBytes, err := canon.EncodeNormalForm(payload)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: append: encode payload: %w", err)
	}

	var commitSeq int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO stream_commit_counter(stream, next_value) VALUES (?, 1)
		ON CONFLICT(stream) DO UPDATE SET next_value = next_value + 1
		RETURNING next_value - 1
	`, stream).Scan(&commitSeq)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: append: allocate commit seq: %w", err)
	}

	var previousCIDStr any
	if previousCID.Defined() {
		previousCIDStr = previousCID.String()
	}
	var causationIDVal any
	if causationID != "" {
		causationIDVal = causationID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events
		(cid, stream, aggregate_id, sequence, timestamp_utc_nanos, correlation_id, causation_id, previous_cid, subject, payload, commit_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		candidateCID.String(), stream, aggregateID, expectedSeq, now.UTC().UnixNano(),
		correlationID, causationIDVal, previousCIDStr, subject, payloadBytes, commitSeq,
	)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: append: insert event: %w", err)
	}

	newStatus := status
	if newStatus == "Empty" {
		newStatus = "Live"
	}
	if isArchivingKind(subject) {
		newStatus = "Archived"
	}
	if _, err := tx.ExecContext(ctx, `UPDATE aggregates SET head_seq = ?, status = ? WHERE aggregate_id = ?`, expectedSeq, newStatus, aggregateID); err != nil {
		return Event{}, fmt.Errorf("eventlog: append: advance head: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO outbox(cid, subject, published) VALUES (?, ?, 0)`, candidateCID.String(), subject); err != nil {
		return Event{}, fmt.Errorf("eventlog: append: enqueue outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Event{}, fmt.Errorf("eventlog: append: commit: %w", err)
	}

	return Event{
		CID:           candidateCID,
		Stream:        stream,
		AggregateID:   aggregateID,
		Sequence:      expectedSeq,
		TimestampUTC:  now.UTC(),
		CorrelationID: correlationID,
		CausationID:   causationID,
		PreviousCID:   previousCID,
		Subject:       subject,
		Payload:       payload,
	}, nil
}

// isArchivingKind reports whether subject's final dotted segment (the
// "kind" per the events.domain.<domain>.<aggregate>.<kind> grammar) names
// an archival event, the only transition that moves an aggregate from Live
// to Archived.
func isArchivingKind(subject string) bool {
	parts := strings.Split(subject, ".")
	if len(parts) == 0 {
		return false
	}
	kind := strings.ToLower(parts[len(parts)-1])
	return kind == "archived" || kind == "graphArchived" || kind == "graph_archived"
}

func lookupEventCID(ctx context.Context, tx *sql.Tx, aggregateID string, seq int64) (cid.CID, bool, error) {
	if seq < 0 {
		return cid.CID{}, false, nil
	}
	var cidStr string
	err := tx.QueryRowContext(ctx, `SELECT cid FROM events WHERE aggregate_id = ? AND sequence = ?`, aggregateID, seq).Scan(&cidStr)
	if err == sql.ErrNoRows {
		return cid.CID{}, false, nil
	}
	if err != nil {
		return cid.CID{}, false, err
	}
	c, err := cid.Parse(cidStr)
	if err != nil {
		return cid.CID{}, false, err
	}
	return c, true, nil
}

func readEventBySeq(ctx context.Context, tx *sql.Tx, aggregateID string, seq int64) (Event, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT cid, stream, aggregate_id, sequence, timestamp_utc_nanos, correlation_id, causation_id, previous_cid, subject, payload
		FROM events WHERE aggregate_id = ? AND sequence = ?
	`, aggregateID, seq)
	return scanEvent(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var cidStr, streamS, aggID, subject, correlationID string
	var causationID, previousCIDStr sql.NullString
	var seq, tsNanos int64
	var payloadBytes []byte

	if err := row.Scan(&cidStr, &streamS, &aggID, &seq, &tsNanos, &correlationID, &causationID, &previousCIDStr, &subject, &payloadBytes); err != nil {
		return Event{}, fmt.Errorf("eventlog: scan event: %w", err)
	}

	c, err := cid.Parse(cidStr)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: scan event: parse cid: %w", err)
	}
	var previousCID cid.CID
	if previousCIDStr.Valid {
		previousCID, err = cid.Parse(previousCIDStr.String)
		if err != nil {
			return Event{}, fmt.Errorf("eventlog: scan event: parse previous_cid: %w", err)
		}
	}

	payloadValue, err := canon.Decode(payloadBytes)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: scan event: decode payload: %w", err)
	}

	return Event{
		CID:           c,
		Stream:        streamS,
		AggregateID:   aggID,
		Sequence:      seq,
		TimestampUTC:  time.Unix(0, tsNanos).UTC(),
		CorrelationID: correlationID,
		CausationID:   causationID.String,
		PreviousCID:   previousCID,
		Subject:       subject,
		Payload:       payloadValue,
	}, nil
}
