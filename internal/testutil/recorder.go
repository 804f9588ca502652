// Package testutil holds helpers shared by tasklog tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/roach88/tasklog/internal/ir"
)

// SnapshotRecorder collects every state pushed to it.
//
// Pass Record to StateStore.Subscribe. Thread-safety: all methods are safe
// for concurrent use via internal mutex.
type SnapshotRecorder struct {
	mu     sync.Mutex
	states []ir.State
}

// NewSnapshotRecorder creates an empty recorder.
func NewSnapshotRecorder() *SnapshotRecorder {
	return &SnapshotRecorder{}
}

// Record appends a snapshot. It matches the StateStore subscriber signature.
func (r *SnapshotRecorder) Record(s ir.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.Clone())
}

// States returns a copy of everything recorded so far.
func (r *SnapshotRecorder) States() []ir.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.State, len(r.states))
	copy(out, r.states)
	return out
}

// Len returns the number of recorded snapshots.
func (r *SnapshotRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Last returns the most recent snapshot, if any.
func (r *SnapshotRecorder) Last() (ir.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ir.State{}, false
	}
	return r.states[len(r.states)-1], true
}

// LoadingTransitions returns the sequence of IsLoading values with
// consecutive duplicates collapsed, e.g. [false true false].
func (r *SnapshotRecorder) LoadingTransitions() []bool {
	var out []bool
	for _, s := range r.States() {
		if len(out) == 0 || out[len(out)-1] != s.IsLoading {
			out = append(out, s.IsLoading)
		}
	}
	return out
}

// WaitFor polls cond until it holds or timeout elapses, failing the test on
// timeout.
func WaitFor(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
