package eventlog

import (
	"context"
	"fmt"
)

// Read returns events committed to stream after fromCursor (exclusive), in
// commit order, up to limit entries. Ordering within a stream is commit
// order; ordering within an aggregate matches sequence order by
// construction (spec §4.2).
func (s *Store) Read(ctx context.Context, stream string, fromCursor int64, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cid, stream, aggregate_id, sequence, timestamp_utc_nanos, correlation_id, causation_id, previous_cid, subject, payload
		FROM events
		WHERE stream = ? AND commit_seq > ?
		ORDER BY commit_seq ASC
		LIMIT ?
	`, stream, fromCursor, limit)
	if err != nil {
		return nil, fmt.Errorf("eventlog: read %s: %w", stream, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("eventlog: read %s: %w", stream, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: read %s: %w", stream, err)
	}
	return out, nil
}

// ReadAggregate returns the full ordered event history for aggregateID,
// sequence 0 upward. Used by the aggregate runtime to reconstruct state by
// replay when no (or a stale) snapshot is available.
func (s *Store) ReadAggregate(ctx context.Context, aggregateID string, fromSeq int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cid, stream, aggregate_id, sequence, timestamp_utc_nanos, correlation_id, causation_id, previous_cid, subject, payload
		FROM events
		WHERE aggregate_id = ? AND sequence >= ?
		ORDER BY sequence ASC
	`, aggregateID, fromSeq)
	if err != nil {
		return nil, fmt.Errorf("eventlog: read aggregate %s: %w", aggregateID, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("eventlog: read aggregate %s: %w", aggregateID, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: read aggregate %s: %w", aggregateID, err)
	}
	return out, nil
}
