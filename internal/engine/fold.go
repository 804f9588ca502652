package engine

import (
	"context"
	"fmt"

	"github.com/roach88/tasklog/internal/ir"
)

// Fold applies events to the initial state with the pure reducer and returns
// the final state and the resulting log.
//
// Playback is handled the way the controller handles it: the trigger is
// dropped, the ID generator rewinds, and the history so far is folded again
// from scratch. maxDepth bounds nesting exactly like WithMaxReplayDepth.
func Fold(r *Reducer, events []ir.Event, maxDepth int) (ir.State, []ir.Event) {
	return foldFrom(r, ir.InitialState(), nil, events, 0, maxDepth)
}

func foldFrom(r *Reducer, s ir.State, log []ir.Event, events []ir.Event, depth, maxDepth int) (ir.State, []ir.Event) {
	for _, ev := range events {
		if _, ok := ev.(ir.PlaybackRequested); ok {
			if depth >= maxDepth {
				log = append(log, ev)
				continue
			}
			history := log
			r.resetIDs()
			s, log = foldFrom(r, ir.InitialState(), nil, history, depth+1, maxDepth)
			continue
		}
		log = append(log, ev)
		s, _ = r.Apply(s, ev)
	}
	return s, log
}

// Verification reports a replay determinism check.
type Verification struct {
	Events        int      `json:"events"`
	Before        ir.State `json:"before"`
	FirstReplay   ir.State `json:"first_replay"`
	SecondReplay  ir.State `json:"second_replay"`
	BeforeDigest  string   `json:"before_digest"`
	ReplayDigest  string   `json:"replay_digest"`
	Deterministic bool     `json:"deterministic"`
}

// VerifyReplay runs events through a fresh zero-latency controller, then
// requests playback twice and checks that both replays rebuild the state
// that existed before the first one.
//
// opts are applied after the zero-latency defaults, except that latency and
// pacing are always forced to zero.
func VerifyReplay(ctx context.Context, events []ir.Event, opts ...Option) (Verification, error) {
	all := append([]Option{}, opts...)
	all = append(all, WithAddLatency(0), WithReplayInterval(0))
	c := New(all...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()
	defer func() {
		c.Stop()
		<-done
	}()

	var v Verification
	v.Events = len(events)

	for i, ev := range events {
		if _, err := c.Dispatch(ctx, ev); err != nil {
			return v, fmt.Errorf("verify replay: dispatch event %d: %w", i, err)
		}
	}
	v.Before = c.Store().Snapshot()

	first, err := c.Dispatch(ctx, ir.PlaybackRequested{})
	if err != nil {
		return v, fmt.Errorf("verify replay: first playback: %w", err)
	}
	v.FirstReplay = first.State

	second, err := c.Dispatch(ctx, ir.PlaybackRequested{})
	if err != nil {
		return v, fmt.Errorf("verify replay: second playback: %w", err)
	}
	v.SecondReplay = second.State

	if v.BeforeDigest, err = ir.StateDigest(v.Before); err != nil {
		return v, fmt.Errorf("verify replay: %w", err)
	}
	if v.ReplayDigest, err = ir.StateDigest(v.SecondReplay); err != nil {
		return v, fmt.Errorf("verify replay: %w", err)
	}

	v.Deterministic = v.Before.Equal(v.FirstReplay) && v.FirstReplay.Equal(v.SecondReplay)
	return v, nil
}
