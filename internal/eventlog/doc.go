// Package eventlog implements the durable, append-only, content-addressed
// event log (spec component C2): per-aggregate sequence chains, per-stream
// replay cursors, chain verification, and advisory snapshotting.
//
// Storage is SQLite via mattn/go-sqlite3 in WAL mode with a single
// connection, the same durability posture the teacher's internal/store
// package uses for its invocation/completion log. Append checks the
// aggregate head and any event already stored at the target sequence and
// then inserts, all inside one transaction, so a re-append with the same
// CID returns the stored event; aggregate and cursor rows are created with
// INSERT OR IGNORE, and snapshots are upserted only when newer.
package eventlog
