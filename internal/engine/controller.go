package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/tasklog/internal/ir"
)

// Default timing and limits.
const (
	// DefaultAddLatency models validation/network latency of AddTaskRequested.
	DefaultAddLatency = time.Second

	// DefaultReplayInterval paces replayed events so an observer can watch
	// history rebuild.
	DefaultReplayInterval = time.Second

	// DefaultMaxReplayDepth bounds nested playback.
	DefaultMaxReplayDepth = 8
)

// Journal receives every live record once it has been reduced.
// Records re-appended by replay are derived from earlier ones and are not
// mirrored, nor is a live add aborted by cancellation, so folding a journal
// reproduces the live state.
// Implemented by store.SessionJournal. Failures are logged and ignored: the
// live state never depends on the journal.
type Journal interface {
	Append(ctx context.Context, rec ir.Record) error
}

// Controller is the single-writer entry point of tasklog.
//
// Thread-safety model:
//   - Submit, Dispatch, Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - Store accessors: safe from any goroutine
//
// CRITICAL: all log appends and state commits happen on the Run goroutine.
type Controller struct {
	log     *EventLog
	store   *StateStore
	reducer *Reducer
	queue   *jobQueue
	journal Journal
	logger  *slog.Logger

	sessionID      string
	addLatency     time.Duration
	replayInterval time.Duration
	maxReplayDepth int
}

// Option configures a Controller.
type Option func(*Controller)

// WithIDGenerator sets the task ID policy. Default: SequenceGenerator("task").
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Controller) {
		if g != nil {
			c.reducer.ids = g
		}
	}
}

// WithFavoritePredicate sets the favorite seeding rule.
// Default: SubstringFavorite("love").
func WithFavoritePredicate(p FavoritePredicate) Option {
	return func(c *Controller) {
		if p != nil {
			c.reducer.favorite = p
		}
	}
}

// WithAddLatency sets the suspension inside AddTaskRequested.
// Use WithAddLatency(0) in tests.
func WithAddLatency(d time.Duration) Option {
	return func(c *Controller) {
		c.addLatency = d
	}
}

// WithReplayInterval sets the pause before each replayed event.
func WithReplayInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.replayInterval = d
	}
}

// WithMaxReplayDepth sets how deep nested playback may recurse. A live
// playback runs at depth 0, so n = 0 refuses every playback.
func WithMaxReplayDepth(n int) Option {
	return func(c *Controller) {
		c.maxReplayDepth = n
	}
}

// WithJournal mirrors every live record to j.
func WithJournal(j Journal) Option {
	return func(c *Controller) {
		c.journal = j
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSessionID names this controller run. Default: a fresh UUIDv7.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// WithHistory seeds the event log with events recorded elsewhere (for
// example a journaled session) without reducing them. State stays initial
// until a PlaybackRequested rebuilds it from this history.
func WithHistory(events ...ir.Event) Option {
	return func(c *Controller) {
		for _, ev := range events {
			if ev != nil {
				c.log.Append(ev)
			}
		}
	}
}

// New creates a Controller with an empty log and initial state.
// Nothing is processed until Run is called.
func New(opts ...Option) *Controller {
	c := &Controller{
		log:            NewEventLog(),
		store:          NewStateStore(),
		reducer:        NewReducer(nil, nil),
		queue:          newJobQueue(),
		logger:         slog.Default(),
		addLatency:     DefaultAddLatency,
		replayInterval: DefaultReplayInterval,
		maxReplayDepth: DefaultMaxReplayDepth,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.sessionID == "" {
		c.sessionID = NewSessionID()
	}

	return c
}

// Submit enqueues ev and returns immediately.
// The returned Pending resolves once the Run loop has processed the event.
func (c *Controller) Submit(ev ir.Event) *Pending {
	p := newPending()
	if ev == nil {
		p.resolve(Outcome{}, &RuntimeError{Code: ErrCodeNilEvent, Message: "submit: nil event"})
		return p
	}
	if !c.queue.Enqueue(job{event: ev, pending: p}) {
		p.resolve(Outcome{}, ErrControllerStopped)
	}
	return p
}

// Dispatch submits ev and waits for its Outcome.
func (c *Controller) Dispatch(ctx context.Context, ev ir.Event) (Outcome, error) {
	return c.Submit(ev).Wait(ctx)
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled (returns ctx.Err()) or Stop has been called
// and every queued event is processed (returns nil).
//
// ERROR HANDLING: events never fail; they resolve as applied or rejected.
// Journal failures are logged and processing continues.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("controller starting", "session", c.sessionID)

	for {
		if ctx.Err() != nil {
			return c.halt(ctx)
		}

		if j, ok := c.queue.TryDequeue(); ok {
			out := c.process(ctx, j.event, 0)
			j.pending.resolve(out, nil)
			continue
		}

		select {
		case <-ctx.Done():
			return c.halt(ctx)

		case <-c.queue.Wait():
			// A coalesced signal may arrive after the job was already taken;
			// only a closed, empty queue ends the loop.
			if c.queue.Drained() {
				c.logger.Info("controller stopping: queue closed", "session", c.sessionID)
				return nil
			}
		}
	}
}

// Stop stops accepting events. Run returns after the queued ones are done.
func (c *Controller) Stop() {
	c.queue.Close()
}

// halt closes the queue after ctx is cancelled and refuses what is left.
func (c *Controller) halt(ctx context.Context) error {
	c.logger.Info("controller stopping: context cancelled", "session", c.sessionID)
	c.queue.Close()
	c.refuseQueued()
	return ctx.Err()
}

// refuseQueued resolves everything still queued with ErrControllerStopped.
func (c *Controller) refuseQueued() {
	for {
		j, ok := c.queue.TryDequeue()
		if !ok {
			return
		}
		j.pending.resolve(Outcome{}, ErrControllerStopped)
	}
}

// process appends ev and reduces it. depth is 0 for live events and grows by
// one per nesting level of replay.
// CRITICAL: called only from the Run goroutine.
func (c *Controller) process(ctx context.Context, ev ir.Event, depth int) Outcome {
	rec := c.log.Append(ev)

	c.logger.Debug("processing event",
		"seq", rec.Seq,
		"kind", ev.Kind(),
		"depth", depth,
	)

	var (
		out     Outcome
		aborted bool
	)
	switch e := ev.(type) {
	case ir.AddTaskRequested:
		out = c.reduceAdd(ctx, e, depth)
		aborted = out.Reason == ReasonCancelled
	case ir.PlaybackRequested:
		out = c.replay(ctx, rec, depth)
	default:
		next, o := c.reducer.Apply(c.store.Snapshot(), ev)
		c.store.commit(next)
		out = o
	}

	if depth == 0 {
		if aborted {
			// An aborted live add leaves no history behind.
			c.log.remove(rec.Seq)
		} else {
			c.writeJournal(ctx, rec)
		}
	}

	out.Seq = rec.Seq
	out.Kind = ev.Kind()
	out.State = c.store.Snapshot()

	if out.Applied() {
		c.logger.Debug("event applied", "seq", rec.Seq, "kind", ev.Kind(), "tasks", len(out.State.Tasks))
	} else {
		c.logger.Info("event rejected", "seq", rec.Seq, "kind", ev.Kind(), "reason", out.Reason)
	}
	return out
}

// reduceAdd runs the suspending add-task path. The loading flag is committed
// before the latency window so observers see the busy state.
//
// Cancellation aborts a live add. A replayed add (depth > 0) is history and
// completes regardless.
func (c *Controller) reduceAdd(ctx context.Context, e ir.AddTaskRequested, depth int) Outcome {
	c.store.commit(c.reducer.beginAdd(c.store.Snapshot()))

	if err := sleep(ctx, c.addLatency); err != nil && depth == 0 {
		c.store.commit(c.reducer.abortAdd(c.store.Snapshot()))
		return rejected(ReasonCancelled)
	}

	next, out := c.reducer.finishAdd(c.store.Snapshot(), e.Title)
	c.store.commit(next)
	return out
}

// writeJournal mirrors rec to the journal, if any.
func (c *Controller) writeJournal(ctx context.Context, rec ir.Record) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Append(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Error("journal append failed",
			"error", err,
			"session", c.sessionID,
			"seq", rec.Seq,
			"kind", rec.Event.Kind(),
		)
	}
}

// Store returns the state store for reading and subscribing.
func (c *Controller) Store() *StateStore {
	return c.store
}

// Log returns the event log for reading.
func (c *Controller) Log() *EventLog {
	return c.log
}

// SessionID returns the name of this controller run.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// QueueLen returns the number of events waiting to be processed.
func (c *Controller) QueueLen() int {
	return c.queue.Len()
}

// sleep waits for d or until ctx is done. Non-positive d returns at once.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
