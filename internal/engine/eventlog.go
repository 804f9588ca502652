package engine

import (
	"sync"

	"github.com/roach88/tasklog/internal/ir"
)

// EventLog is the append-only, strictly ordered history of events.
//
// Every record is stamped with a seq from a logical counter that never goes
// backwards, not even across replays. Records leave the log only through the
// replay engine's detach, or remove for a live add aborted by cancellation.
//
// Thread-safety: writes happen only on the controller's Run goroutine, but
// reads (Records, Len) are safe from any goroutine.
type EventLog struct {
	mu      sync.Mutex
	clock   *Clock
	records []ir.Record
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{clock: NewClock(), records: make([]ir.Record, 0, 64)}
}

// Append adds ev at the end of the log unconditionally and returns its record.
// No validation happens here; the reducer decides what an event means.
func (l *EventLog) Append(ev ir.Event) ir.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := ir.Record{Seq: l.clock.Next(), Event: ev}
	l.records = append(l.records, rec)
	return rec
}

// Records returns a copy of the log in append order.
func (l *EventLog) Records() []ir.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ir.Record, len(l.records))
	copy(out, l.records)
	return out
}

// Events returns the logged events in append order.
func (l *EventLog) Events() []ir.Event {
	recs := l.Records()
	out := make([]ir.Event, len(recs))
	for i, r := range recs {
		out[i] = r.Event
	}
	return out
}

// Len returns the number of records.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// LastSeq returns the most recently issued seq, or 0 for a fresh log.
func (l *EventLog) LastSeq() int64 {
	return l.clock.Current()
}

// detach hands the current records to the caller and clears the live log.
// The clock keeps running so re-appended records get fresh seqs.
func (l *EventLog) detach() []ir.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.records
	l.records = make([]ir.Record, 0, cap(out))
	return out
}

// withoutSeq returns records minus the one stamped seq.
func withoutSeq(records []ir.Record, seq int64) []ir.Record {
	out := make([]ir.Record, 0, len(records))
	for _, r := range records {
		if r.Seq != seq {
			out = append(out, r)
		}
	}
	return out
}

// remove drops the record stamped seq. Its seq is never reissued.
func (l *EventLog) remove(seq int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = withoutSeq(l.records, seq)
}
