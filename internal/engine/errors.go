package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a controller-level failure.
//
// Malformed events never produce a RuntimeError; they resolve as rejected
// Outcomes. RuntimeErrors cover the cases where an event could not be
// processed at all.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq identifies the affected record, when there is one.
	Seq int64
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStopped indicates the controller no longer accepts events.
	ErrCodeStopped RuntimeErrorCode = "CONTROLLER_STOPPED"

	// ErrCodeNilEvent indicates a nil event was submitted.
	ErrCodeNilEvent RuntimeErrorCode = "NIL_EVENT"

	// ErrCodeReplayDepth indicates nested playback went past the depth limit.
	ErrCodeReplayDepth RuntimeErrorCode = "REPLAY_DEPTH_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Seq != 0 {
		return fmt.Sprintf("%s: %s (seq=%d)", e.Code, e.Message, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrControllerStopped is returned for events submitted after Stop or after
// Run has returned.
var ErrControllerStopped = &RuntimeError{Code: ErrCodeStopped, Message: "controller stopped"}

// IsStoppedError returns true if the error is a stopped-controller error.
// Uses errors.As to handle wrapped errors.
func IsStoppedError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStopped
	}
	return false
}

// NewReplayDepthError creates a RuntimeError for nested playback past limit.
func NewReplayDepthError(seq int64, depth, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReplayDepth,
		Message: fmt.Sprintf("nested playback at depth %d exceeds limit %d", depth, limit),
		Seq:     seq,
	}
}
