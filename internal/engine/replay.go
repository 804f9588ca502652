package engine

import (
	"context"

	"github.com/roach88/tasklog/internal/ir"
)

// # Replay
//
// Replay rebuilds state purely from history. It runs inside the Run loop as
// part of processing a PlaybackRequested record, so live submissions that
// arrive meanwhile queue up behind it.
//
// ## Algorithm
//
// For a trigger record T at depth d:
//
//  1. Detach the live log and drop T from the working copy, so T is never
//     re-executed (it was logged, and journaled, once).
//  2. Reset the state store to the initial state and rewind the ID generator.
//  3. For each remaining record in original order: wait the replay interval,
//     then run the event through process at depth d+1. process appends it to
//     the now-empty live log, so the log re-populates as replay advances.
//
// ## Termination
//
// The history handed to step 3 never contains T. A nested PlaybackRequested
// in that history triggers step 1 again for itself, replaying only the
// records rebuilt so far, which are strictly fewer than the outer history.
// The depth limit bounds the recursion regardless of input shape; a trigger
// past the limit is logged but rejected without touching state.
//
// ## Cancellation
//
// If ctx is cancelled mid-replay, a replayed add waiting out its latency
// still completes, and the remaining records are applied at once (no pacing,
// no add latency) so the log and state stay consistent before Run returns.
//
// ## Determinism
//
// With a Resetter ID generator (the default), replaying a history produces a
// state equal to the state before playback, task IDs included. Fold and
// VerifyReplay check the same property without a running loop.

// replay executes the playback algorithm for trigger at the given depth.
// CRITICAL: called only from the Run goroutine, via process.
func (c *Controller) replay(ctx context.Context, trigger ir.Record, depth int) Outcome {
	if depth >= c.maxReplayDepth {
		err := NewReplayDepthError(trigger.Seq, depth, c.maxReplayDepth)
		c.logger.Warn("playback refused", "error", err, "depth", depth)
		c.store.commit(c.store.Snapshot())
		return rejected(ReasonReplayDepthExceeded)
	}

	history := withoutSeq(c.log.detach(), trigger.Seq)

	c.logger.Info("replay starting",
		"trigger_seq", trigger.Seq,
		"depth", depth,
		"events", len(history),
	)

	c.store.reset()
	c.reducer.resetIDs()

	for i, rec := range history {
		err := sleep(ctx, c.replayInterval)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			c.logger.Warn("replay interrupted, applying remaining events at once",
				"trigger_seq", trigger.Seq,
				"remaining", len(history)-i,
			)
			c.fastForward(ctx, history[i:], depth+1)
			return rejected(ReasonCancelled)
		}
		c.process(ctx, rec.Event, depth+1)
	}

	c.logger.Info("replay finished", "trigger_seq", trigger.Seq, "depth", depth)
	return applied()
}

// fastForward runs records through process with pacing and latency disabled.
func (c *Controller) fastForward(ctx context.Context, records []ir.Record, depth int) {
	addLatency, interval := c.addLatency, c.replayInterval
	c.addLatency, c.replayInterval = 0, 0
	defer func() {
		c.addLatency, c.replayInterval = addLatency, interval
	}()

	ctx = context.WithoutCancel(ctx)
	for _, rec := range records {
		c.process(ctx, rec.Event, depth)
	}
}
