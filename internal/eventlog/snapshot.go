package eventlog

import (
	"context"
	"database/sql"
	"fmt"
)

// Snapshot records an advisory state blob for aggregateID as of uptoSeq.
// Snapshots are never authoritative: replay from the beginning of the
// stream must reconstruct identical state whether or not a snapshot is
// ever taken (spec §4.2).
func (s *Store) Snapshot(ctx context.Context, aggregateID string, stateBlob []byte, uptoSeq int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots(aggregate_id, state_blob, upto_seq) VALUES (?, ?, ?)
		ON CONFLICT(aggregate_id) DO UPDATE SET state_blob = excluded.state_blob, upto_seq = excluded.upto_seq
		WHERE excluded.upto_seq > snapshots.upto_seq
	`, aggregateID, stateBlob, uptoSeq)
	if err != nil {
		return fmt.Errorf("eventlog: snapshot %s: %w", aggregateID, err)
	}
	return nil
}

// LoadSnapshot returns the most recently recorded snapshot for
// aggregateID, if any. found is false when no snapshot has ever been
// taken, in which case the aggregate runtime must replay from sequence 0.
func (s *Store) LoadSnapshot(ctx context.Context, aggregateID string) (stateBlob []byte, uptoSeq int64, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT state_blob, upto_seq FROM snapshots WHERE aggregate_id = ?`, aggregateID).Scan(&stateBlob, &uptoSeq)
	if err == sql.ErrNoRows {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("eventlog: load snapshot %s: %w", aggregateID, err)
	}
	return stateBlob, uptoSeq, true, nil
}
