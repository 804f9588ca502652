package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalParams configures every pooled connection through the DSN.
var journalParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// migration advances the journal by one user_version step.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order inside their own transaction. Append only.
var migrations = []migration{
	{version: 1, name: "sessions and records", stmt: schemaSQL},
	{version: 2, name: "records by kind", stmt: `
		CREATE INDEX IF NOT EXISTS idx_events_session_kind
		ON events(session_id, kind)`},
}

// SchemaVersion is the journal layout this build writes.
var SchemaVersion = migrations[len(migrations)-1].version

// Store is a SQLite journal of controller sessions.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the journal at path, creating and migrating it as needed.
// ":memory:" gives a private journal that lives as long as the Store.
//
// A journal written by a newer build (user_version above SchemaVersion) is
// refused rather than read with a layout it may not match.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?"+journalParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	// One connection: the controller is the only writer, and an in-memory
	// journal must not be split across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the journal. Calling it more than once is harmless.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the path the journal was opened with.
func (s *Store) Path() string {
	return s.path
}

// Version reports the journal's user_version.
func (s *Store) Version(ctx context.Context) (int, error) {
	return userVersion(ctx, s.db)
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// migrate applies every migration above the journal's user_version.
func migrate(ctx context.Context, db *sql.DB) error {
	current, err := userVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("journal schema v%d is newer than supported v%d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
	}
	// user_version is part of the database header, so it commits with tx.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("migration %d (%s): set user_version: %w", m.version, m.name, err)
	}
	return tx.Commit()
}
