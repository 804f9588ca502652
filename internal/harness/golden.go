package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tasklog/internal/ir"
)

// Snapshot captures what a golden file pins down for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Outcomes     []StepOutcome `json:"outcomes"`
	Trace        []TraceEvent  `json:"trace"`
	State        ir.State      `json:"state"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles primitives, slices and maps.
func (s *Snapshot) toCanonicalMap() (map[string]any, error) {
	outcomes := make([]any, len(s.Outcomes))
	for i, o := range s.Outcomes {
		m := map[string]any{
			"step":   o.Step,
			"seq":    o.Seq,
			"kind":   o.Kind,
			"status": o.Status,
		}
		if o.Reason != "" {
			m["reason"] = o.Reason
		}
		outcomes[i] = m
	}

	trace := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		m := map[string]any{
			"seq":  event.Seq,
			"kind": event.Kind,
		}
		if len(event.Payload) > 0 {
			m["payload"] = event.Payload
		}
		trace[i] = m
	}

	tasks := make([]any, len(s.State.Tasks))
	for i, t := range s.State.Tasks {
		tasks[i] = map[string]any{
			"id":           t.ID,
			"title":        t.Title,
			"is_favorited": t.IsFavorited,
		}
	}

	digest, err := ir.StateDigest(s.State)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"outcomes":      outcomes,
		"trace":         trace,
		"state": map[string]any{
			"tasks":          tasks,
			"is_loading":     s.State.IsLoading,
			"is_input_valid": s.State.IsInputValid,
			"draft_input":    s.State.DraftInput,
		},
		"state_digest": digest,
	}, nil
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: name,
		Outcomes:     result.Outcomes,
		Trace:        result.Trace,
		State:        result.State,
	}
	m, err := snapshot.toCanonicalMap()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(m)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
