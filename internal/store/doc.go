// Package store provides SQLite-backed durable storage for tasklog sessions.
//
// A session is one controller run. The journal keeps, per session, the live
// records the controller reduced; records re-appended by replay and live
// adds aborted by cancellation are not journaled, so folding a session
// reproduces its live state:
//   - sessions: one row per controller run
//   - events: (session_id, seq) ordered records with their encoded payload
//
// # Critical Patterns
//
// Logical ordering:
//   - All ordering uses seq INTEGER from the controller's logical counter,
//     never timestamps
//   - Reads MUST include ORDER BY seq ASC
//
// Idempotent appends:
//   - PRIMARY KEY(session_id, seq) with ON CONFLICT DO NOTHING
//   - Writing the same record twice is a no-op
//
// Content addressing:
//   - Each row carries ir.RecordID of its record; reads recompute and compare
//     it so a hand-edited journal is detected
//
// # Journal Layout
//
// Open applies the connection settings through the DSN (WAL, synchronous
// NORMAL, 5s busy timeout, foreign keys) and runs the numbered migrations in
// store.go above the file's user_version. A journal written by a newer build
// is refused.
package store
