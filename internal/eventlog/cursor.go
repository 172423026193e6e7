package eventlog

import (
	"context"
	"database/sql"
	"fmt"
)

// Cursor is a projection's durable read position: the commit-sequence
// cursor into its subscribed stream, an opaque folded-state blob, and a
// halted flag (spec §4.5: "the runtime maintains a durable cursor per
// projection; on restart, it resumes from the cursor").
type Cursor struct {
	Name       string
	Stream     string
	Sequence   int64
	LastCID    string
	StateBlob  []byte
	Halted     bool
	HaltCID    string
	HaltReason string
}

// LoadCursor returns the stored cursor for name, if a projection has ever
// run under that name.
func (s *Store) LoadCursor(ctx context.Context, name string) (Cursor, bool, error) {
	var c Cursor
	var lastCID, haltCID, haltReason sql.NullString
	var halted int
	err := s.db.QueryRowContext(ctx, `
		SELECT name, stream, sequence, last_cid, state_blob, halted, halt_cid, halt_reason
		FROM projection_cursors WHERE name = ?
	`, name).Scan(&c.Name, &c.Stream, &c.Sequence, &lastCID, &c.StateBlob, &halted, &haltCID, &haltReason)
	if err == sql.ErrNoRows {
		return Cursor{}, false, nil
	}
	if err != nil {
		return Cursor{}, false, fmt.Errorf("eventlog: load cursor %s: %w", name, err)
	}
	c.LastCID = lastCID.String
	c.Halted = halted != 0
	c.HaltCID = haltCID.String
	c.HaltReason = haltReason.String
	return c, true, nil
}

// EnsureCursor creates a fresh cursor for name on stream, starting before
// the first event (sequence -1), if one does not already exist.
func (s *Store) EnsureCursor(ctx context.Context, name, stream string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO projection_cursors(name, stream, sequence) VALUES (?, ?, -1)
	`, name, stream)
	if err != nil {
		return fmt.Errorf("eventlog: ensure cursor %s: %w", name, err)
	}
	return nil
}

// AdvanceCursor persists a projection's new position, the CID of the
// event just applied, and the folded state after successfully applying
// an event. It is idempotent: advancing to a sequence at or behind the
// stored one is a no-op, so an at-least-once redelivery of an
// already-applied event never regresses the cursor. lastCID lets the
// runtime recognize an exact-duplicate redelivery (same CID, same
// sequence) without re-running apply.
func (s *Store) AdvanceCursor(ctx context.Context, name string, sequence int64, lastCID string, stateBlob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projection_cursors
		SET sequence = ?, last_cid = ?, state_blob = ?
		WHERE name = ? AND sequence < ?
	`, sequence, lastCID, stateBlob, name, sequence)
	if err != nil {
		return fmt.Errorf("eventlog: advance cursor %s: %w", name, err)
	}
	return nil
}

// HaltCursor records that a projection has stopped consuming after
// exhausting its retry budget on a specific event (spec §4.5:
// "ProjectionHalted(name, cid, reason)").
func (s *Store) HaltCursor(ctx context.Context, name, haltCID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projection_cursors SET halted = 1, halt_cid = ?, halt_reason = ? WHERE name = ?
	`, haltCID, reason, name)
	if err != nil {
		return fmt.Errorf("eventlog: halt cursor %s: %w", name, err)
	}
	return nil
}

// ResumeCursor clears a halted projection's flag so the runtime may try
// again, typically after an operator has inspected and addressed the
// cause surfaced in HaltReason.
func (s *Store) ResumeCursor(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projection_cursors SET halted = 0, halt_cid = NULL, halt_reason = NULL WHERE name = ?
	`, name)
	if err != nil {
		return fmt.Errorf("eventlog: resume cursor %s: %w", name, err)
	}
	return nil
}
