package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tasklog/internal/ir"
)

// Scenario defines a conformance test scenario.
// Scenarios dispatch a sequence of events through a controller and check
// the per-event outcomes, the final state and the event log.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Events are dispatched in order, each waiting for the previous one.
	Events []EventStep `yaml:"events"`

	// Expect validates the final state. If nil, only assertions run.
	Expect *Expect `yaml:"expect,omitempty"`

	// Assertions validate the final event log.
	// Supported types: trace_contains, trace_absent, trace_count, trace_order
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// VerifyReplay additionally checks that playback rebuilds the final
	// state exactly, twice in a row.
	VerifyReplay bool `yaml:"verify_replay,omitempty"`
}

// EventStep is one event to dispatch.
// Only the fields relevant to Kind are read.
type EventStep struct {
	Kind      string `yaml:"kind"`
	Title     string `yaml:"title,omitempty"`
	Index     int    `yaml:"index,omitempty"`
	Text      string `yaml:"text,omitempty"`
	TaskID    string `yaml:"task_id,omitempty"`
	Favorited bool   `yaml:"favorited,omitempty"`

	// Expect optionally checks this event's outcome.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect specifies the expected outcome of one event.
type StepExpect struct {
	// Status is "applied" or "rejected". Empty means any.
	Status string `yaml:"status,omitempty"`

	// Reason is the expected rejection reason. Empty means any.
	Reason string `yaml:"reason,omitempty"`
}

// Expect describes the expected final state.
// Nil pointers and a nil Tasks slice are not checked.
type Expect struct {
	Tasks      []ExpectTask `yaml:"tasks,omitempty"`
	Loading    *bool        `yaml:"loading,omitempty"`
	InputValid *bool        `yaml:"input_valid,omitempty"`
	Draft      *string      `yaml:"draft,omitempty"`
	LogLength  *int         `yaml:"log_length,omitempty"`
}

// ExpectTask is one expected task, most recent first.
type ExpectTask struct {
	Title     string `yaml:"title"`
	Favorited bool   `yaml:"favorited,omitempty"`

	// ID is checked only when set.
	ID string `yaml:"id,omitempty"`
}

// Assertion validates the final event log.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": kind appears in the log
	// - "trace_absent": kind does not appear in the log
	// - "trace_count": kind appears exactly Count times
	// - "trace_order": Kinds appear in order (not necessarily adjacent)
	Type string `yaml:"type"`

	// Kind is the event kind (used by all types except trace_order).
	Kind string `yaml:"kind,omitempty"`

	// Kinds is the expected kind order (used by trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceAbsent   = "trace_absent"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
)

// Event converts the step into its ir event.
func (s EventStep) Event() (ir.Event, error) {
	kind, err := ir.ParseKind(s.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ir.KindAddTaskRequested:
		return ir.AddTaskRequested{Title: s.Title}, nil
	case ir.KindPlaybackRequested:
		return ir.PlaybackRequested{}, nil
	case ir.KindDeleteRequested:
		return ir.DeleteRequested{Index: s.Index}, nil
	case ir.KindInputChanged:
		return ir.InputChanged{Text: s.Text}, nil
	case ir.KindFavoriteToggled:
		return ir.FavoriteToggled{TaskID: s.TaskID, IsFavorited: s.Favorited}, nil
	}
	return nil, fmt.Errorf("unsupported event kind %q", s.Kind)
}

// EventList converts every step, failing on the first bad one.
func (s *Scenario) EventList() ([]ir.Event, error) {
	events := make([]ir.Event, 0, len(s.Events))
	for i, step := range s.Events {
		ev, err := step.Event()
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// LoadScenario reads, schema-checks and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario is LoadScenario for in-memory documents.
func ParseScenario(data []byte) (*Scenario, error) {
	if err := ValidateScenario(data); err != nil {
		return nil, err
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks what the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	for i, step := range s.Events {
		if _, err := step.Event(); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Reason != "" && step.Expect.Status == "applied" {
			return fmt.Errorf("events[%d].expect: reason %q given for an applied event", i, step.Expect.Reason)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains, AssertTraceAbsent, AssertTraceCount:
		if _, err := ir.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
		for _, k := range a.Kinds {
			if _, err := ir.ParseKind(k); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
