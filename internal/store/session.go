package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tasklog/internal/ir"
)

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = errors.New("session not found")

// Session describes one journaled controller run.
type Session struct {
	ID            string `json:"id"`
	Label         string `json:"label,omitempty"`
	EngineVersion string `json:"engine_version"`
	RecordVersion string `json:"record_version"`
	Events        int    `json:"events"`
	LastSeq       int64  `json:"last_seq"`
}

// CreateSession inserts a session row stamped with the running engine and
// record versions. Uses ON CONFLICT(id) DO NOTHING, so reopening a session
// keeps its original stamp.
func (s *Store) CreateSession(ctx context.Context, id, label string) error {
	if id == "" {
		return fmt.Errorf("create session: empty id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, engine_version, record_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, label, ir.EngineVersion, ir.RecordVersion)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns one session with its record count.
// Returns ErrSessionNotFound (wrapped) if the session does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.label, s.engine_version, s.record_version,
		       COUNT(e.seq), COALESCE(MAX(e.seq), 0)
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		WHERE s.id = ?
		GROUP BY s.id
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %q: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %q: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns every session ordered by ID.
// Session IDs are UUIDv7 by default, so this is creation order.
//
// Returns an empty slice (not nil) if no sessions exist.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.label, s.engine_version, s.record_version,
		       COUNT(e.seq), COALESCE(MAX(e.seq), 0)
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID,
		&sess.Label,
		&sess.EngineVersion,
		&sess.RecordVersion,
		&sess.Events,
		&sess.LastSeq,
	)
	return sess, err
}
