package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasklog/internal/ir"
)

func TestOpen_CreatesJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err, "journal file is created")
	assert.Equal(t, path, s.Path())

	version, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	assert.ElementsMatch(t, []string{"sessions", "events"}, tableNames(t, s.db))
	assert.Contains(t, indexNames(t, s.db, "events"), "idx_events_session_kind")
}

func TestOpen_ReopenKeepsSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.CreateSession(ctx, "s1", "first run"))
	require.NoError(t, s1.AppendRecord(ctx, "s1", ir.Record{Seq: 1, Event: ir.AddTaskRequested{Title: "a"}}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	sess, err := s2.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "first run", sess.Label)
	assert.Equal(t, 1, sess.Events)
	assert.Equal(t, int64(1), sess.LastSeq)
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.CreateSession(ctx, "mem", ""))
	require.NoError(t, s.AppendRecord(ctx, "mem", ir.Record{Seq: 1, Event: ir.PlaybackRequested{}}))

	recs, err := s.ReadSession(ctx, "mem")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open journal")
}

func TestOpen_ConnectionSettings(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			var got string
			require.NoError(t, s.db.QueryRow("PRAGMA "+tt.pragma).Scan(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_UpgradesOlderJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	// A journal from before the kind index: base tables at version 1.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO sessions (id, label, engine_version, record_version) VALUES ('old', '', '0.0.1', '1')`)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
	assert.Contains(t, indexNames(t, s.db, "events"), "idx_events_session_kind")

	sess, err := s.GetSession(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "0.0.1", sess.EngineVersion, "existing sessions survive the upgrade")
}

func TestOpen_RefusesNewerJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestOpen_RepeatedOpensKeepVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err)
		version, err := s.Version(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SchemaVersion, version, "open %d", i)
		require.NoError(t, s.Close())
	}
}

func TestClose_Twice(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.NoError(t, (&Store{}).Close())
}

func TestSchema_SessionEventsForeignKey(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO events (session_id, seq, id, kind, payload) VALUES ('ghost', 1, 'x', 'playback_requested', '{}')`)
	assert.Error(t, err, "records need a session row")
}

func tableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	return queryNames(t, db, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
}

func indexNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryNames(t, db, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
}

func queryNames(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()
	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
