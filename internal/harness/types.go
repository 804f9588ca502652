package harness

import (
	"github.com/roach88/tasklog/internal/engine"
	"github.com/roach88/tasklog/internal/ir"
)

// TraceEvent is one record of the final event log.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// StepOutcome is the outcome of one dispatched scenario event.
type StepOutcome struct {
	Step   int    `json:"step"`
	Seq    int64  `json:"seq"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Outcomes holds one entry per scenario event, in dispatch order.
	Outcomes []StepOutcome `json:"outcomes"`

	// Trace is the final event log. Playback triggers are never in it.
	Trace []TraceEvent `json:"trace"`

	// State is the final state.
	State ir.State `json:"state"`

	// Replay is set when the scenario asked for replay verification.
	Replay *engine.Verification `json:"replay,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Outcomes: []StepOutcome{},
		Trace:    []TraceEvent{},
		State:    ir.InitialState(),
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a log record to the trace.
func (r *Result) AddTrace(rec ir.Record) {
	canonical := ir.CanonicalEvent(rec.Event)
	payload, _ := canonical["payload"].(map[string]any)
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     rec.Seq,
		Kind:    string(rec.Event.Kind()),
		Payload: payload,
	})
}

// AddOutcome records the outcome of scenario step i.
func (r *Result) AddOutcome(i int, out engine.Outcome) {
	r.Outcomes = append(r.Outcomes, StepOutcome{
		Step:   i,
		Seq:    out.Seq,
		Kind:   string(out.Kind),
		Status: string(out.Status),
		Reason: string(out.Reason),
	})
}
