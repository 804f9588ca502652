package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tasklog/internal/ir"
)

// quietLogger suppresses controller logs in tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startController runs a zero-latency controller for the test's lifetime.
// Extra options are applied after the test defaults.
func startController(t *testing.T, opts ...Option) *Controller {
	t.Helper()

	all := []Option{
		WithAddLatency(0),
		WithReplayInterval(0),
		WithLogger(quietLogger()),
		WithSessionID("test-session"),
	}
	c := New(append(all, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("controller did not stop")
		}
	})
	return c
}

// dispatchAll dispatches events in order and returns the last outcome.
func dispatchAll(t *testing.T, c *Controller, events ...ir.Event) Outcome {
	t.Helper()
	var out Outcome
	for _, ev := range events {
		var err error
		out, err = c.Dispatch(context.Background(), ev)
		require.NoError(t, err)
	}
	return out
}

func titles(s ir.State) []string {
	out := make([]string, len(s.Tasks))
	for i, task := range s.Tasks {
		out[i] = task.Title
	}
	return out
}
