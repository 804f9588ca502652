package store

import (
	"context"
	"fmt"

	"github.com/roach88/tasklog/internal/ir"
)

// AppendRecord writes one record to a session's journal.
// Uses ON CONFLICT DO NOTHING for idempotency - writing the same seq twice
// is silently ignored. The session must exist (foreign key constraint).
//
// The payload is stored as ir.EncodeEvent output together with the record's
// content-addressed ID.
func (s *Store) AppendRecord(ctx context.Context, sessionID string, rec ir.Record) error {
	id, err := ir.RecordID(rec)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	payload, err := ir.EncodeEvent(rec.Event)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (session_id, seq, id, kind, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		sessionID,
		rec.Seq,
		id,
		string(rec.Event.Kind()),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("append record seq=%d: %w", rec.Seq, err)
	}
	return nil
}

// ReadSession returns a session's records ordered by seq ASC.
//
// Every row's stored ID is checked against the recomputed ir.RecordID; a
// mismatch means the journal was edited by hand and is reported as an error.
// Returns an empty slice (not nil) if the session has no records.
func (s *Store) ReadSession(ctx context.Context, sessionID string) ([]ir.Record, error) {
	return s.readRecords(ctx, `
		SELECT seq, id, kind, payload
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
}

// ReadSessionKind is ReadSession restricted to one event kind.
func (s *Store) ReadSessionKind(ctx context.Context, sessionID string, kind ir.Kind) ([]ir.Record, error) {
	return s.readRecords(ctx, `
		SELECT seq, id, kind, payload
		FROM events
		WHERE session_id = ? AND kind = ?
		ORDER BY seq ASC
	`, sessionID, string(kind))
}

func (s *Store) readRecords(ctx context.Context, query string, args ...any) ([]ir.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		var (
			seq     int64
			id      string
			kind    string
			payload string
		)
		if err := rows.Scan(&seq, &id, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		rec, err := decodeRecord(seq, id, kind, payload)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

func decodeRecord(seq int64, id, kind, payload string) (ir.Record, error) {
	k, err := ir.ParseKind(kind)
	if err != nil {
		return ir.Record{}, fmt.Errorf("event seq=%d: %w", seq, err)
	}

	ev, err := ir.DecodeEvent(k, []byte(payload))
	if err != nil {
		return ir.Record{}, fmt.Errorf("event seq=%d: %w", seq, err)
	}

	rec := ir.Record{Seq: seq, Event: ev}
	want, err := ir.RecordID(rec)
	if err != nil {
		return ir.Record{}, fmt.Errorf("event seq=%d: %w", seq, err)
	}
	if want != id {
		return ir.Record{}, fmt.Errorf("event seq=%d: id mismatch: stored %s, computed %s", seq, id, want)
	}
	return rec, nil
}

// SessionJournal appends a controller's records to one session.
// It satisfies engine.Journal.
type SessionJournal struct {
	store     *Store
	sessionID string
}

// Journal creates the session row (if needed) and returns its sink.
func (s *Store) Journal(ctx context.Context, sessionID, label string) (*SessionJournal, error) {
	if err := s.CreateSession(ctx, sessionID, label); err != nil {
		return nil, err
	}
	return &SessionJournal{store: s, sessionID: sessionID}, nil
}

// Append writes rec to the session.
func (j *SessionJournal) Append(ctx context.Context, rec ir.Record) error {
	return j.store.AppendRecord(ctx, j.sessionID, rec)
}

// SessionID returns the session this journal writes to.
func (j *SessionJournal) SessionID() string {
	return j.sessionID
}
