// Package ir provides the canonical data types for tasklog.
//
// This package contains the task, event, record, and state definitions plus
// their canonical encodings. All other internal packages import ir; ir imports
// nothing internal, so it stays the foundational layer.
//
// Key design constraints:
//   - Events are a closed set, sealed by an unexported interface method
//   - Records are stamped with logical sequence numbers, never wall-clock time
//   - Task identity is the opaque ID only; titles carry no identity
//   - All JSON tags use snake_case
package ir
