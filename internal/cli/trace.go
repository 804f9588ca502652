package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tasklog/internal/engine"
	"github.com/roach88/tasklog/internal/ir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Kind     string // optional - filter to one event kind
}

// TraceRecord is a single journaled record in the timeline.
type TraceRecord struct {
	Seq     int64          `json:"seq"`
	ID      string         `json:"id"`
	Kind    ir.Kind        `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	SessionID string        `json:"session_id"`
	Label     string        `json:"label,omitempty"`
	Timeline  []TraceRecord `json:"timeline"`
	Final     ir.State      `json:"final"`
	Digest    string        `json:"digest"`
	Stats     TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
// Counts cover the whole session even when the timeline is filtered.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByKind      map[string]int `json:"by_kind"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the journaled record list of a session",
		Long: `Print the records journaled for a session, in sequence order.

The output includes:
- Timeline: every record with its content-addressed ID and payload
- Final state: the session's journal folded with the pure reducer
- Stats: record counts per event kind

Examples:
  tasklog trace --db ./tasklog.db --session 0192f5d2-...
  tasklog trace --db ./tasklog.db --session 0192f5d2-... --kind add_task_requested
  tasklog trace --db ./tasklog.db --session 0192f5d2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default: config database)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter timeline to one event kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var kind ir.Kind
	if opts.Kind != "" {
		k, err := ir.ParseKind(opts.Kind)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		kind = k
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
	sess := sessions[0]

	recs, err := st.ReadSession(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	timeline, err := buildTimeline(recs, kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build timeline", err)
	}

	final, _ := engine.Fold(opts.Config.Reducer(), recordEvents(recs), opts.Config.MaxReplayDepth)
	digest, err := ir.StateDigest(final)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest state", err)
	}

	result := TraceResult{
		SessionID: sess.ID,
		Label:     sess.Label,
		Timeline:  timeline,
		Final:     final,
		Digest:    digest,
		Stats:     buildStats(recs),
	}

	if opts.Format == "json" {
		return newOutput(cmd, opts.RootOptions).Result(result.SessionID, result)
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTimeline converts journaled records to timeline entries.
// When kind is set, only records of that kind are included.
func buildTimeline(recs []ir.Record, kind ir.Kind) ([]TraceRecord, error) {
	timeline := make([]TraceRecord, 0, len(recs))
	for _, rec := range recs {
		if kind != "" && rec.Event.Kind() != kind {
			continue
		}
		id, err := ir.RecordID(rec)
		if err != nil {
			return nil, err
		}
		payload, _ := ir.CanonicalEvent(rec.Event)["payload"].(map[string]any)
		timeline = append(timeline, TraceRecord{
			Seq:     rec.Seq,
			ID:      id,
			Kind:    rec.Event.Kind(),
			Payload: payload,
		})
	}
	return timeline, nil
}

// buildStats counts records per kind.
func buildStats(recs []ir.Record) TraceStats {
	stats := TraceStats{
		TotalEvents: len(recs),
		ByKind:      make(map[string]int),
	}
	for _, rec := range recs {
		stats.ByKind[string(rec.Event.Kind())]++
	}
	return stats
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	name := result.SessionID
	if result.Label != "" {
		name += " (" + result.Label + ")"
	}
	fmt.Fprintf(w, "Trace for Session: %s\n", name)
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, rec := range result.Timeline {
			formatTimelineRecord(w, rec, verbose)
		}
	}
	fmt.Fprintln(w)

	// Final state section
	fmt.Fprintln(w, "=== Final State ===")
	if len(result.Final.Tasks) == 0 {
		fmt.Fprintln(w, "  (no tasks)")
	} else {
		writeTasks(w, result.Final.Tasks)
	}
	fmt.Fprintf(w, "  Digest: %s\n", truncateID(result.Digest))
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	kinds := make([]string, 0, len(result.Stats.ByKind))
	for k := range result.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", k, result.Stats.ByKind[k])
	}

	return nil
}

// formatTimelineRecord formats a single timeline record for text output.
func formatTimelineRecord(w io.Writer, rec TraceRecord, verbose bool) {
	fmt.Fprintf(w, "  [%d] %s %s\n", rec.Seq, rec.Kind, formatArgs(rec.Payload))
	if verbose {
		fmt.Fprintf(w, "       ID: %s\n", truncateID(rec.ID))
	}
}

// formatArgs formats a payload for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single payload value; strings are quoted.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID or digest for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
