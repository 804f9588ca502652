package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasklog/internal/config"
	"github.com/roach88/tasklog/internal/engine"
	"github.com/roach88/tasklog/internal/ir"
	"github.com/roach88/tasklog/internal/store"
)

// testRootOptions mirrors what PersistentPreRunE resolves, with zero latency
// and a silent logger.
func testRootOptions(format string) *RootOptions {
	cfg := config.Default()
	cfg.AddLatency = 0
	cfg.ReplayInterval = 0
	return &RootOptions{
		Format: format,
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// executeCommand runs cmd with args and returns stdout.
func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeScenario writes a scenario file into dir and returns its path.
func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// journalSession drives events through a journaled zero-latency controller.
func journalSession(t *testing.T, dbPath, sessionID, label string, events ...ir.Event) ir.State {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	journal, err := st.Journal(ctx, sessionID, label)
	require.NoError(t, err)

	c := engine.New(
		engine.WithAddLatency(0),
		engine.WithReplayInterval(0),
		engine.WithJournal(journal),
		engine.WithSessionID(sessionID),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	for _, ev := range events {
		c.Submit(ev)
	}
	c.Stop()
	require.NoError(t, c.Run(ctx))
	return c.Store().Snapshot()
}

const favoriteScenario = `name: favorites
description: "Two tasks, one favorited by title"
events:
  - kind: add_task_requested
    title: "I love Go"
  - kind: add_task_requested
    title: "hello"
expect:
  tasks:
    - title: "hello"
    - title: "I love Go"
      favorited: true
`

const playbackScenario = `name: playback
description: "Playback rebuilds the list from history"
events:
  - kind: add_task_requested
    title: "first"
  - kind: add_task_requested
    title: "second"
  - kind: playback_requested
expect:
  tasks:
    - title: "second"
    - title: "first"
  log_length: 2
verify_replay: true
`

const failingScenario = `name: wrong_expectation
description: "Expects a task that is never added"
events:
  - kind: add_task_requested
    title: "real"
expect:
  tasks:
    - title: "imaginary"
`
