package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tasklog/internal/engine"
	"github.com/roach88/tasklog/internal/ir"
	"github.com/roach88/tasklog/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Label    string

	// SessionID overrides the generated session token (for testing).
	// If empty, defaults to engine.NewSessionID().
	SessionID string
}

// RunStep is one dispatched event and every state it produced.
type RunStep struct {
	Index     int        `json:"index"`
	Seq       int64      `json:"seq"`
	Kind      ir.Kind    `json:"kind"`
	Status    string     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	Snapshots []ir.State `json:"snapshots"`
}

// RunResult holds the output of the run command.
type RunResult struct {
	Scenario    string    `json:"scenario"`
	SessionID   string    `json:"session_id"`
	Journaled   bool      `json:"journaled"`
	Interrupted bool      `json:"interrupted,omitempty"`
	Steps       []RunStep `json:"steps"`
	Final       ir.State  `json:"final"`
	Digest      string    `json:"digest"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommandWith(&RunOptions{RootOptions: rootOpts})
}

func newRunCommandWith(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Drive a live controller with a scenario's events",
		Long: `Run the events of a scenario file through a live controller.

Unlike "test", the controller uses the configured add latency and replay
pacing, and every state snapshot is printed as it is committed. With --db
each live event is journaled under a new session so it can be traced and
replayed later.

Example:
  tasklog run ./scenarios/add_and_favorite.yaml
  tasklog run --db ./tasklog.db --label demo ./scenarios/add_and_favorite.yaml
  TASKLOG_ADD_LATENCY=0 tasklog run --format json ./scenarios/replay.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default: config database)")
	cmd.Flags().StringVar(&opts.Label, "label", "", "session label (default: scenario name)")

	return cmd
}

func runEvents(opts *RunOptions, path string, cmd *cobra.Command) error {
	scenario, err := loadScenarioFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	events, err := scenario.EventList()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build events", err)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = engine.NewSessionID()
	}

	engineOpts := append(opts.Config.EngineOptions(),
		engine.WithLogger(opts.Logger),
		engine.WithSessionID(sessionID),
	)

	database := opts.Database
	if database == "" {
		database = opts.Config.Database
	}
	if database != "" {
		slog.Info("opening journal", "path", database)
		st, err := store.Open(database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		label := opts.Label
		if label == "" {
			label = scenario.Name
		}
		journal, err := st.Journal(ctx, sessionID, label)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		engineOpts = append(engineOpts, engine.WithJournal(journal))
	}

	c := engine.New(engineOpts...)

	var (
		mu        sync.Mutex
		snapshots []ir.State
	)
	unsubscribe := c.Store().Subscribe(func(s ir.State) {
		mu.Lock()
		snapshots = append(snapshots, s)
		mu.Unlock()
	})
	defer unsubscribe()
	takeSnapshots := func() []ir.State {
		mu.Lock()
		defer mu.Unlock()
		out := snapshots
		snapshots = nil
		return out
	}

	// Step snapshots above need every commit; progress logging only needs
	// the latest, which Watch provides.
	watchCtx, stopWatch := context.WithCancel(ctx)
	progress := make(chan struct{})
	go func() {
		defer close(progress)
		logProgress(opts.Logger, c.Store().Watch(watchCtx))
	}()
	defer func() {
		stopWatch()
		<-progress
	}()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	result := RunResult{
		Scenario:  scenario.Name,
		SessionID: sessionID,
		Journaled: database != "",
		Steps:     make([]RunStep, 0, len(events)),
	}

	w := cmd.OutOrStdout()
	text := opts.Format != "json"
	if text {
		fmt.Fprintf(w, "Session %s (%s)\n", sessionID, scenario.Name)
	}

	for i, ev := range events {
		out, err := c.Dispatch(ctx, ev)
		if err != nil {
			if ctx.Err() != nil || engine.IsStoppedError(err) {
				slog.Info("interrupted, stopping", "dispatched", i)
				result.Interrupted = true
				break
			}
			c.Stop()
			<-done
			return WrapExitError(ExitFailure, fmt.Sprintf("dispatch event %d", i), err)
		}

		step := RunStep{
			Index:     i,
			Seq:       out.Seq,
			Kind:      out.Kind,
			Status:    string(out.Status),
			Reason:    string(out.Reason),
			Snapshots: takeSnapshots(),
		}
		result.Steps = append(result.Steps, step)
		if text {
			printRunStep(w, step)
		}
	}

	c.Stop()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "controller error", err)
	}

	result.Final = c.Store().Snapshot()
	if result.Digest, err = ir.StateDigest(result.Final); err != nil {
		return WrapExitError(ExitFailure, "failed to digest state", err)
	}

	if !text {
		return newOutput(cmd, opts.RootOptions).Result(sessionID, result)
	}

	printRunSummary(w, result)
	return nil
}

// logProgress reports state changes at debug level until states closes.
func logProgress(logger *slog.Logger, states <-chan ir.State) {
	for st := range states {
		logger.Debug("state changed",
			"tasks", len(st.Tasks),
			"loading", st.IsLoading,
			"input_valid", st.IsInputValid,
		)
	}
}

// printRunStep writes one dispatched event and its snapshots.
func printRunStep(w io.Writer, step RunStep) {
	line := fmt.Sprintf("[%d] %s %s", step.Seq, step.Kind, step.Status)
	if step.Reason != "" {
		line += " (" + step.Reason + ")"
	}
	fmt.Fprintln(w, line)
	for _, s := range step.Snapshots {
		fmt.Fprintf(w, "    %s\n", formatState(s))
	}
}

// printRunSummary writes the final task list.
func printRunSummary(w io.Writer, result RunResult) {
	fmt.Fprintln(w)
	if result.Interrupted {
		fmt.Fprintln(w, "Interrupted.")
	}
	fmt.Fprintf(w, "Final state (%d task(s), digest %s)\n", len(result.Final.Tasks), truncateID(result.Digest))
	writeTasks(w, result.Final.Tasks)
	if result.Journaled {
		fmt.Fprintf(w, "Journaled as session %s\n", result.SessionID)
	}
}

// formatState renders a state on one line.
func formatState(s ir.State) string {
	return fmt.Sprintf("tasks=%d loading=%t input_valid=%t draft=%q",
		len(s.Tasks), s.IsLoading, s.IsInputValid, s.DraftInput)
}

// writeTasks lists tasks front to back, favorites starred.
func writeTasks(w io.Writer, tasks []ir.Task) {
	for _, t := range tasks {
		mark := " "
		if t.IsFavorited {
			mark = "★"
		}
		fmt.Fprintf(w, "  %s %s %s\n", mark, t.ID, t.Title)
	}
}
