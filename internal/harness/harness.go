package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tasklog/internal/engine"
	"github.com/roach88/tasklog/internal/ir"
	"github.com/roach88/tasklog/internal/store"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	store      *store.Store
	controller *engine.Controller
	logger     *slog.Logger
	sessionID  string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and a journaled controller
// 2. Dispatch every event, checking per-event expectations
// 3. Check the final state, the event log and the journal
// 4. Optionally verify replay determinism
// 5. Return result with pass/fail, trace, and errors
//
// The returned error reports infrastructure failures only; scenario
// failures are recorded in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	events, err := scenario.EventList()
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:     st,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		sessionID: "harness-" + scenario.Name,
	}

	journal, err := st.Journal(ctx, h.sessionID, scenario.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	h.controller = engine.New(
		engine.WithAddLatency(0),
		engine.WithReplayInterval(0),
		engine.WithJournal(journal),
		engine.WithLogger(h.logger),
		engine.WithSessionID(h.sessionID),
	)

	result := NewResult()
	if err := h.execute(ctx, scenario, events, result); err != nil {
		return nil, err
	}

	result.State = h.controller.Store().Snapshot()
	for _, rec := range h.controller.Log().Records() {
		result.AddTrace(rec)
	}

	if scenario.Expect != nil {
		for _, msg := range checkExpect(*scenario.Expect, result) {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	if err := h.checkJournal(ctx, result); err != nil {
		return nil, err
	}

	if scenario.VerifyReplay {
		v, err := engine.VerifyReplay(ctx, events, engine.WithLogger(h.logger))
		if err != nil {
			return nil, fmt.Errorf("verify replay: %w", err)
		}
		result.Replay = &v
		if !v.Deterministic {
			result.AddError(fmt.Sprintf("replay is not deterministic: before %s, after %s",
				v.BeforeDigest, v.ReplayDigest))
		}
	}

	return result, nil
}

// execute runs the controller loop and dispatches every event in order.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, events []ir.Event, result *Result) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.controller.Run(runCtx) }()

	var dispatchErr error
	for i, ev := range events {
		out, err := h.controller.Dispatch(ctx, ev)
		if err != nil {
			dispatchErr = fmt.Errorf("dispatch events[%d] (%s): %w", i, ev.Kind(), err)
			break
		}
		result.AddOutcome(i, out)

		if exp := scenario.Events[i].Expect; exp != nil {
			if msg := checkStep(i, *exp, out); msg != "" {
				result.AddError(msg)
			}
		}
	}

	h.controller.Stop()
	if err := <-done; err != nil && dispatchErr == nil {
		dispatchErr = fmt.Errorf("controller: %w", err)
	}
	return dispatchErr
}

// checkJournal verifies that the journaled session folds to the final state.
func (h *Harness) checkJournal(ctx context.Context, result *Result) error {
	recs, err := h.store.ReadSession(ctx, h.sessionID)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	events := make([]ir.Event, len(recs))
	for i, rec := range recs {
		events[i] = rec.Event
	}

	folded, _ := engine.Fold(engine.NewReducer(nil, nil), events, engine.DefaultMaxReplayDepth)
	if !folded.Equal(result.State) {
		result.AddError(fmt.Sprintf("journal does not fold to the final state: %d journaled events", len(recs)))
	}
	return nil
}

// checkStep compares one outcome with its step expectation.
func checkStep(i int, exp StepExpect, out engine.Outcome) string {
	if exp.Status != "" && exp.Status != string(out.Status) {
		return fmt.Sprintf("events[%d] (%s): expected status %s, got %s (reason %q)",
			i, out.Kind, exp.Status, out.Status, out.Reason)
	}
	if exp.Reason != "" && exp.Reason != string(out.Reason) {
		return fmt.Sprintf("events[%d] (%s): expected reason %q, got %q",
			i, out.Kind, exp.Reason, out.Reason)
	}
	return ""
}

// checkExpect compares the final state with the scenario expectation.
func checkExpect(exp Expect, result *Result) []string {
	var errs []string
	s := result.State

	if exp.Tasks != nil {
		if len(exp.Tasks) != len(s.Tasks) {
			errs = append(errs, fmt.Sprintf("expected %d tasks, got %d: %v",
				len(exp.Tasks), len(s.Tasks), taskTitles(s)))
		} else {
			for i, want := range exp.Tasks {
				got := s.Tasks[i]
				if want.Title != got.Title {
					errs = append(errs, fmt.Sprintf("tasks[%d]: expected title %q, got %q", i, want.Title, got.Title))
				}
				if want.Favorited != got.IsFavorited {
					errs = append(errs, fmt.Sprintf("tasks[%d] (%q): expected favorited=%t, got %t",
						i, got.Title, want.Favorited, got.IsFavorited))
				}
				if want.ID != "" && want.ID != got.ID {
					errs = append(errs, fmt.Sprintf("tasks[%d]: expected id %q, got %q", i, want.ID, got.ID))
				}
			}
		}
	}

	if exp.Loading != nil && *exp.Loading != s.IsLoading {
		errs = append(errs, fmt.Sprintf("expected loading=%t, got %t", *exp.Loading, s.IsLoading))
	}
	if exp.InputValid != nil && *exp.InputValid != s.IsInputValid {
		errs = append(errs, fmt.Sprintf("expected input_valid=%t, got %t", *exp.InputValid, s.IsInputValid))
	}
	if exp.Draft != nil && *exp.Draft != s.DraftInput {
		errs = append(errs, fmt.Sprintf("expected draft %q, got %q", *exp.Draft, s.DraftInput))
	}
	if exp.LogLength != nil && *exp.LogLength != len(result.Trace) {
		errs = append(errs, fmt.Sprintf("expected log length %d, got %d", *exp.LogLength, len(result.Trace)))
	}

	return errs
}

func taskTitles(s ir.State) []string {
	out := make([]string, len(s.Tasks))
	for i, t := range s.Tasks {
		out[i] = t.Title
	}
	return out
}
