package engine

import "sync/atomic"

// Clock is the logical clock that stamps log records.
//
// Seqs start at 1 and only grow. The event log owns one clock for its whole
// lifetime, so a record re-appended by replay gets a fresh seq instead of
// reusing the one it had before.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued seq, or 0 if none was issued.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
