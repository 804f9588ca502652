package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasklog/internal/engine"
	"github.com/roach88/tasklog/internal/ir"
)

func TestAppendRecord_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s1")

	records := []ir.Record{
		{Seq: 1, Event: ir.InputChanged{Text: "love cats"}},
		{Seq: 2, Event: ir.AddTaskRequested{Title: "love cats"}},
		{Seq: 3, Event: ir.FavoriteToggled{TaskID: "task-000001", IsFavorited: false}},
		{Seq: 4, Event: ir.DeleteRequested{Index: 0}},
		{Seq: 5, Event: ir.PlaybackRequested{}},
	}
	for _, rec := range records {
		require.NoError(t, s.AppendRecord(ctx, "s1", rec))
	}

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestAppendRecord_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s1")

	rec := ir.Record{Seq: 1, Event: ir.AddTaskRequested{Title: "a"}}
	require.NoError(t, s.AppendRecord(ctx, "s1", rec))
	require.NoError(t, s.AppendRecord(ctx, "s1", rec))

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAppendRecord_UnknownSession(t *testing.T) {
	s := createTestStore(t)

	err := s.AppendRecord(context.Background(), "missing", ir.Record{Seq: 1, Event: ir.PlaybackRequested{}})
	assert.Error(t, err)
}

func TestAppendRecord_NilEvent(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")

	err := s.AppendRecord(context.Background(), "s1", ir.Record{Seq: 1})
	assert.Error(t, err)
}

func TestReadSession_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s1")

	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, s.AppendRecord(ctx, "s1", ir.Record{Seq: seq, Event: ir.DeleteRequested{Index: int(seq)}}))
	}

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].Seq, got[1].Seq, got[2].Seq})
}

func TestReadSession_Empty(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")

	got, err := s.ReadSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadSession_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s1")
	require.NoError(t, s.AppendRecord(ctx, "s1", ir.Record{Seq: 1, Event: ir.AddTaskRequested{Title: "a"}}))

	_, err := s.db.Exec(`UPDATE events SET payload = '{"title":"b"}' WHERE seq = 1`)
	require.NoError(t, err)

	_, err = s.ReadSession(ctx, "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id mismatch")
}

func TestReadSession_UnknownKind(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")

	_, err := s.db.Exec(
		`INSERT INTO events (session_id, seq, id, kind, payload) VALUES ('s1', 1, 'x', 'rename_task', '{}')`,
	)
	require.NoError(t, err)

	_, err = s.ReadSession(context.Background(), "s1")
	assert.Error(t, err)
}

func TestReadSessionKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s1")

	require.NoError(t, s.AppendRecord(ctx, "s1", ir.Record{Seq: 1, Event: ir.AddTaskRequested{Title: "a"}}))
	require.NoError(t, s.AppendRecord(ctx, "s1", ir.Record{Seq: 2, Event: ir.InputChanged{Text: "b"}}))
	require.NoError(t, s.AppendRecord(ctx, "s1", ir.Record{Seq: 3, Event: ir.AddTaskRequested{Title: "c"}}))

	got, err := s.ReadSessionKind(ctx, "s1", ir.KindAddTaskRequested)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, int64(3), got[1].Seq)
}

func TestJournal_RecordsControllerSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	j, err := s.Journal(ctx, "run-1", "integration")
	require.NoError(t, err)
	assert.Equal(t, "run-1", j.SessionID())

	c := engine.New(
		engine.WithAddLatency(0),
		engine.WithReplayInterval(0),
		engine.WithJournal(j),
		engine.WithSessionID(j.SessionID()),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	events := []ir.Event{
		ir.AddTaskRequested{Title: "I love Go"},
		ir.AddTaskRequested{Title: "walk"},
		ir.PlaybackRequested{},
	}
	var last engine.Outcome
	for _, ev := range events {
		last, err = c.Dispatch(ctx, ev)
		require.NoError(t, err)
	}
	c.Stop()
	require.NoError(t, <-done)
	cancel()

	recs, err := s.ReadSession(ctx, "run-1")
	require.NoError(t, err)
	// Two live adds and the trigger; replayed records are not journaled.
	require.Len(t, recs, 3)
	assert.Equal(t, ir.KindPlaybackRequested, recs[2].Event.Kind())

	journaled := make([]ir.Event, len(recs))
	for i, r := range recs {
		journaled[i] = r.Event
	}
	folded, _ := engine.Fold(engine.NewReducer(nil, nil), journaled, engine.DefaultMaxReplayDepth)
	assert.True(t, last.State.Equal(folded), "journal folds back to the live state")
}
