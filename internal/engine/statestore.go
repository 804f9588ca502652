package engine

import (
	"context"
	"sync"

	"github.com/roach88/tasklog/internal/ir"
)

// StateStore holds the current derived state and pushes every change to
// subscribers.
//
// Only the controller writes (commit, reset); everything exported is
// read-only. Subscribers are called synchronously on the controller's Run
// goroutine after each commit, in subscription order, each with its own
// copy of the state. A subscriber must not call Controller.Dispatch, which
// would wait on the goroutine it is running on; Submit is fine.
type StateStore struct {
	mu    sync.RWMutex
	state ir.State

	subMu  sync.Mutex
	subs   []subscriber
	nextID int
}

type subscriber struct {
	id int
	fn func(ir.State)
}

// NewStateStore creates a store holding ir.InitialState().
func NewStateStore() *StateStore {
	return &StateStore{state: ir.InitialState()}
}

// Snapshot returns a copy of the current state.
func (s *StateStore) Snapshot() ir.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Tasks returns a copy of the task list, most recent first.
func (s *StateStore) Tasks() []ir.Task {
	return s.Snapshot().Tasks
}

// IsLoading reports whether an add-task is in flight.
func (s *StateStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoading
}

// IsInputValid reports whether the draft input passes validation.
func (s *StateStore) IsInputValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsInputValid
}

// DraftInput returns the current draft text.
func (s *StateStore) DraftInput() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.DraftInput
}

// Subscribe registers fn for every future state change and returns a
// function that removes it. Unsubscribing twice is harmless.
func (s *StateStore) Subscribe(fn func(ir.State)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Watch adapts Subscribe to a channel. The current state is delivered first.
//
// The channel buffers one value and keeps the latest: a slow reader skips
// intermediate states but always sees the newest one. The channel is closed
// when ctx is done.
func (s *StateStore) Watch(ctx context.Context) <-chan ir.State {
	ch := make(chan ir.State, 1)

	var (
		mu     sync.Mutex
		closed bool
	)
	send := func(st ir.State) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- st:
			return
		default:
		}
		// Full: drop the stale value and keep the latest.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}

	send(s.Snapshot())
	unsubscribe := s.Subscribe(send)

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

// commit replaces the state and notifies subscribers.
func (s *StateStore) commit(next ir.State) {
	next = next.Clone()

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(next.Clone())
	}
}

// reset returns the store to its initial empty form, notifying subscribers.
func (s *StateStore) reset() {
	s.commit(ir.InitialState())
}
