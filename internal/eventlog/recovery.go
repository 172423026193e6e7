package eventlog

import (
	"context"
	"database/sql"
	"fmt"
)

// PendingEvent describes an event durably committed but not yet confirmed
// published to C3 — the window the two-phase write+publish model (spec
// §4.2) leaves open if the process crashes between commit and publish.
type PendingEvent struct {
	CID     string
	Subject string
}

// PendingEvents returns outbox rows not yet marked published, in commit
// order, so the caller (alchemistd's startup relay pass) can resume
// publication without re-deriving which events need it.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]PendingEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.cid, o.subject
		FROM outbox o
		JOIN events e ON e.cid = o.cid
		WHERE o.published = 0
		ORDER BY e.commit_seq ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("eventlog: pending events: %w", err)
	}
	defer rows.Close()

	var out []PendingEvent
	for rows.Next() {
		var pe PendingEvent
		if err := rows.Scan(&pe.CID, &pe.Subject); err != nil {
			return nil, fmt.Errorf("eventlog: pending events: %w", err)
		}
		out = append(out, pe)
	}
	return out, rows.Err()
}

// MarkPublished records that cid's outbox entry has been confirmed
// published. Idempotent: marking an already-published row published again
// is a no-op.
func (s *Store) MarkPublished(ctx context.Context, cidStr string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET published = 1 WHERE cid = ?`, cidStr)
	if err != nil {
		return fmt.Errorf("eventlog: mark published %s: %w", cidStr, err)
	}
	return nil
}

// IncompleteAggregate is an aggregate whose durable head sequence has
// outstanding, unpublished events — the unit of work a crash-recovery pass
// resumes.
type IncompleteAggregate struct {
	AggregateID  string
	HeadSeq      int64
	Status       string
	PendingCount int
}

// FindIncompleteAggregates returns every aggregate with at least one
// unpublished event, for operator-facing crash recovery introspection.
func (s *Store) FindIncompleteAggregates(ctx context.Context) ([]IncompleteAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.aggregate_id, a.head_seq, a.status, COUNT(o.cid)
		FROM aggregates a
		JOIN events e ON e.aggregate_id = a.aggregate_id
		JOIN outbox o ON o.cid = e.cid AND o.published = 0
		GROUP BY a.aggregate_id, a.head_seq, a.status
		ORDER BY a.aggregate_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("eventlog: find incomplete aggregates: %w", err)
	}
	defer rows.Close()

	var out []IncompleteAggregate
	for rows.Next() {
		var ia IncompleteAggregate
		if err := rows.Scan(&ia.AggregateID, &ia.HeadSeq, &ia.Status, &ia.PendingCount); err != nil {
			return nil, fmt.Errorf("eventlog: find incomplete aggregates: %w", err)
		}
		out = append(out, ia)
	}
	return out, rows.Err()
}

// AggregateHead returns the current head sequence and status for
// aggregateID. found is false if the aggregate has never been written to.
func (s *Store) AggregateHead(ctx context.Context, aggregateID string) (headSeq int64, status string, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT head_seq, status FROM aggregates WHERE aggregate_id = ?`, aggregateID).Scan(&headSeq, &status)
	if err == sql.ErrNoRows {
		return -1, "", false, nil
	}
	if err != nil {
		return -1, "", false, fmt.Errorf("eventlog: aggregate head %s: %w", aggregateID, err)
	}
	return headSeq, status, true, nil
}
