// Package harness runs tasklog scenarios as executable contract tests.
//
// Every scenario runs through a real controller with zero add latency and
// zero replay pacing, journaled to a fresh in-memory SQLite store. Task IDs
// come from the default sequence generator, so traces and final states are
// identical across runs and suitable for golden comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	events:
//	  - kind: input_changed
//	    text: "love cats"
//	  - kind: add_task_requested
//	    title: "love cats"
//	    expect:
//	      status: applied
//	  - kind: playback_requested
//	expect:
//	  tasks:
//	    - title: "love cats"
//	      favorited: true
//	  draft: ""
//	assertions:
//	  - type: trace_absent
//	    kind: playback_requested
//	verify_replay: true
//
// Documents are checked against an embedded CUE schema (schema.cue) before
// they are decoded, so typos and kind-specific missing fields are reported
// together with their paths.
//
// # Assertion Types
//
//   - trace_contains: at least one event of kind is in the final log
//   - trace_absent: no event of kind is in the final log
//   - trace_count: exactly count events of kind are in the final log
//   - trace_order: kinds appear in this order, gaps allowed
//
// # Deterministic Testing
//
// The harness uses:
//   - Zero add latency and zero replay pacing
//   - The default sequence ID generator (task-000001, ...)
//   - In-memory SQLite journal (isolated per run)
//
// This ensures identical snapshots across runs for golden file comparison.
package harness
