package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tasklog/internal/engine"
	"github.com/roach88/tasklog/internal/ir"
	"github.com/roach88/tasklog/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID     string `json:"session_id"`
	Label         string `json:"label,omitempty"`
	Events        int    `json:"events"`
	Playbacks     int    `json:"playbacks"`
	Tasks         int    `json:"tasks"`
	JournalDigest string `json:"journal_digest"`
	ReplayDigest  string `json:"replay_digest"`
	FoldMatches   bool   `json:"fold_matches"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Replay journaled sessions to verify determinism and report statistics.

For each session the journal is folded with the pure reducer, then the same
events are driven through a zero-latency controller which requests playback
twice. A session is deterministic when the fold, the live state and both
replays agree, task IDs included.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown session, etc.)

Examples:
  tasklog replay --db ./tasklog.db
  tasklog replay --db ./tasklog.db --session 0192f5d2-...
  tasklog replay --db ./tasklog.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default: config database)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openJournal(ctx, opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := selectSessions(ctx, st, opts.Session)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		if opts.Format == "json" {
			return newOutput(cmd, opts.RootOptions).Result("", ReplayResult{
				Sessions:         []ReplaySessionResult{},
				AllDeterministic: true,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in journal.")
		return nil
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	for _, sess := range sessions {
		sessionResult, err := replayAndVerifySession(ctx, st, sess, opts.RootOptions)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}

		result.Sessions = append(result.Sessions, sessionResult)
		if !sessionResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	out := newOutput(cmd, opts.RootOptions)
	if !out.JSON() {
		printReplaySummary(out.Out, result, opts.Verbose)
	}
	if !result.AllDeterministic {
		return out.Failure(ExitFailure, ErrCodeReplay, "determinism verification failed", result)
	}
	if out.JSON() {
		return out.Result("", result)
	}
	return nil
}

// openJournal opens the database named by flag, or by the config when the
// flag is empty.
func openJournal(ctx context.Context, opts *RootOptions, flag string) (*store.Store, error) {
	path := flag
	if path == "" && opts.Config != nil {
		path = opts.Config.Database
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set TASKLOG_DB")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	version, err := st.Version(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read journal version", err)
	}
	slog.Debug("journal opened", "path", st.Path(), "schema_version", version)
	return st, nil
}

// selectSessions returns the named session, or every session when id is empty.
func selectSessions(ctx context.Context, st *store.Store, id string) ([]store.Session, error) {
	if id == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		return sessions, nil
	}

	sess, err := st.GetSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read session", err)
	}
	return []store.Session{sess}, nil
}

// recordEvents strips sequence numbers from journaled records.
func recordEvents(recs []ir.Record) []ir.Event {
	events := make([]ir.Event, len(recs))
	for i, rec := range recs {
		events[i] = rec.Event
	}
	return events
}

// replayAndVerifySession folds one session and verifies replay determinism.
func replayAndVerifySession(ctx context.Context, st *store.Store, sess store.Session, opts *RootOptions) (ReplaySessionResult, error) {
	recs, err := st.ReadSession(ctx, sess.ID)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	events := recordEvents(recs)

	folded, _ := engine.Fold(opts.Config.Reducer(), events, opts.Config.MaxReplayDepth)
	journalDigest, err := ir.StateDigest(folded)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	verifyOpts := append(opts.Config.EngineOptions(), engine.WithLogger(opts.Logger))
	v, err := engine.VerifyReplay(ctx, events, verifyOpts...)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	playbacks := 0
	for _, ev := range events {
		if ev.Kind() == ir.KindPlaybackRequested {
			playbacks++
		}
	}

	foldMatches := folded.Equal(v.Before)
	return ReplaySessionResult{
		SessionID:     sess.ID,
		Label:         sess.Label,
		Events:        len(events),
		Playbacks:     playbacks,
		Tasks:         len(folded.Tasks),
		JournalDigest: journalDigest,
		ReplayDigest:  v.ReplayDigest,
		FoldMatches:   foldMatches,
		Deterministic: foldMatches && v.Deterministic,
	}, nil
}

// printReplaySummary writes the per-session verdicts.
func printReplaySummary(w io.Writer, result ReplayResult, verbose bool) {
	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "✓"
		if !sess.Deterministic {
			status = "✗"
		}

		name := sess.SessionID
		if sess.Label != "" {
			name += " (" + sess.Label + ")"
		}
		fmt.Fprintf(w, "%s Session: %s\n", status, name)
		fmt.Fprintf(w, "  Events: %d (%d playback), %d task(s)\n", sess.Events, sess.Playbacks, sess.Tasks)

		if verbose {
			fmt.Fprintf(w, "  Journal digest: %s\n", sess.JournalDigest)
			fmt.Fprintf(w, "  Replay digest:  %s\n", sess.ReplayDigest)
		}
		if !sess.FoldMatches {
			fmt.Fprintln(w, "  Journal fold differs from the live controller")
		}
	}

	fmt.Fprintln(w)
	if !result.AllDeterministic {
		fmt.Fprintln(w, "✗ Determinism verification failed")
		return
	}
	fmt.Fprintln(w, "✓ All sessions deterministic")
}
