package engine

import "github.com/roach88/tasklog/internal/ir"

// Status reports whether a dispatched event had an effect.
type Status string

const (
	// StatusApplied means the event was reduced as intended.
	StatusApplied Status = "applied"
	// StatusRejected means the event was logged but degraded to a no-op.
	StatusRejected Status = "rejected"
)

// Reason explains a rejection.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonEmptyTitle          Reason = "empty_title"
	ReasonIndexOutOfRange     Reason = "index_out_of_range"
	ReasonUnknownTask         Reason = "unknown_task"
	ReasonReplayDepthExceeded Reason = "replay_depth_exceeded"
	ReasonCancelled           Reason = "cancelled"
)

// Outcome is the typed result of one dispatch.
//
// A rejected outcome still leaves the store consistent: for example an empty
// add-task title cycles the loading flag but creates no task.
type Outcome struct {
	Seq    int64    `json:"seq"`
	Kind   ir.Kind  `json:"kind"`
	Status Status   `json:"status"`
	Reason Reason   `json:"reason,omitempty"`
	State  ir.State `json:"state"`
}

// Applied reports whether the event took effect.
func (o Outcome) Applied() bool {
	return o.Status == StatusApplied
}

func applied() Outcome {
	return Outcome{Status: StatusApplied}
}

func rejected(reason Reason) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason}
}
