package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints task IDs for AddTaskRequested.
//
// The title is passed for policies that want it, but implementations must
// not derive identity from it alone: two tasks with the same title are still
// two tasks.
type IDGenerator interface {
	Next(title string) string
}

// Resetter is implemented by generators that can rewind.
// The replay engine resets the generator together with the state store, so
// replayed tasks get the IDs they had originally and FavoriteToggled events
// in the history still find their targets.
type Resetter interface {
	Reset()
}

// DefaultIDPrefix prefixes IDs minted by SequenceGenerator.
const DefaultIDPrefix = "task"

// SequenceGenerator mints monotonic IDs: "task-000001", "task-000002", ...
//
// It is the default policy: unique within a timeline, deterministic across
// replays, independent of wall-clock time.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator with the given prefix.
// An empty prefix falls back to DefaultIDPrefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	return &SequenceGenerator{prefix: prefix}
}

// Next returns the next ID in the sequence.
func (g *SequenceGenerator) Next(string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}

// Reset rewinds the sequence so the next ID is the first one again.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// UUIDv7Generator mints time-sortable UUIDv7 task IDs.
//
// IDs are globally unique but not reproducible: a replayed history gets new
// IDs, so FavoriteToggled events recorded against the old IDs resolve as
// unknown_task. Use it only where replay is not needed.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Next creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Next(string) string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewSessionID returns a UUIDv7 naming one controller run in the journal.
func NewSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs for testing.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("a", "b")
//	gen.Next("x") // "a"
//	gen.Next("y") // "b"
//	gen.Next("z") // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Next returns the next predetermined ID.
//
// Panics if all IDs have been consumed, so a test that adds more tasks than
// it planned for fails loudly.
func (g *FixedGenerator) Next(string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Reset rewinds to the first ID.
func (g *FixedGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.idx = 0
}

// FavoritePredicate decides whether a new task starts favorited.
type FavoritePredicate func(title string) bool

// DefaultFavoriteNeedle is the substring that seeds the favorite flag.
const DefaultFavoriteNeedle = "love"

// SubstringFavorite favorites titles containing needle (case-sensitive).
func SubstringFavorite(needle string) FavoritePredicate {
	return func(title string) bool {
		return strings.Contains(title, needle)
	}
}
