// Package engine implements the tasklog controller.
//
// The controller is the single entry point for user intents. It appends each
// event to the event log, folds it into the current state with the reducer,
// and commits the result to the state store, which notifies subscribers.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All events are processed in one goroutine (Controller.Run). This ensures:
//   - No interleaving of partial state mutations, even across the suspending
//     add-task path
//   - The event log order is the order in which events were reduced
//   - Replay reproduces the same sequence of reductions
//
// Event Processing Flow:
//  1. Submit enqueues the event and returns a Pending future
//  2. Run dequeues one event at a time
//  3. The event is appended to the log (and the optional journal)
//  4. The reducer computes the next state; the store commits and notifies
//  5. The Pending future resolves with an Outcome
//
// Replay:
// A PlaybackRequested event drops itself from the history, resets the store,
// detaches the rest of the log, and re-runs every historical event through
// the same process path at a fixed pacing interval. Nested playback events in
// the history apply the same exclusion at every depth, bounded by the max
// replay depth.
//
// Suspensions (add latency, replay pacing) select on the context, so they
// yield instead of blocking the caller, and Run stops promptly on cancel.
package engine
