package engine

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tasklog/internal/ir"
)

// MinInputLength is the exclusive lower bound on valid draft input length.
// A draft is valid when its length is strictly greater than this.
const MinInputLength = 3

// InputLength measures text in runes after NFC normalization, so composed
// and decomposed forms of the same character count once.
func InputLength(text string) int {
	return utf8.RuneCountInString(norm.NFC.String(text))
}

// ValidInput applies the draft validation rule.
func ValidInput(text string) bool {
	return InputLength(text) > MinInputLength
}

// Reducer maps (state, event) to the next state.
//
// Apply is pure apart from the ID minted for a non-empty AddTaskRequested.
// The controller splits add-task into beginAdd and finishAdd around its
// latency window so observers can see the loading flag.
type Reducer struct {
	ids      IDGenerator
	favorite FavoritePredicate
}

// NewReducer creates a reducer. Nil arguments fall back to a fresh
// SequenceGenerator and the default "love" substring predicate.
func NewReducer(ids IDGenerator, favorite FavoritePredicate) *Reducer {
	if ids == nil {
		ids = NewSequenceGenerator(DefaultIDPrefix)
	}
	if favorite == nil {
		favorite = SubstringFavorite(DefaultFavoriteNeedle)
	}
	return &Reducer{ids: ids, favorite: favorite}
}

// Apply performs the whole transition for ev without suspending.
//
// PlaybackRequested is returned unchanged here; replay needs the history,
// which only the controller (or Fold) has.
func (r *Reducer) Apply(s ir.State, ev ir.Event) (ir.State, Outcome) {
	s = s.Clone()

	switch e := ev.(type) {
	case ir.AddTaskRequested:
		return r.finishAdd(r.beginAdd(s), e.Title)

	case ir.PlaybackRequested:
		return s, applied()

	case ir.DeleteRequested:
		if e.Index < 0 || e.Index >= len(s.Tasks) {
			return s, rejected(ReasonIndexOutOfRange)
		}
		s.Tasks = append(s.Tasks[:e.Index], s.Tasks[e.Index+1:]...)
		return s, applied()

	case ir.InputChanged:
		s.DraftInput = e.Text
		s.IsInputValid = ValidInput(e.Text)
		return s, applied()

	case ir.FavoriteToggled:
		i := s.IndexOf(e.TaskID)
		if i < 0 {
			return s, rejected(ReasonUnknownTask)
		}
		s.Tasks[i].IsFavorited = e.IsFavorited
		return s, applied()
	}

	// The event set is closed; this is unreachable for ir events.
	return s, applied()
}

// beginAdd marks the add-task window as open.
func (r *Reducer) beginAdd(s ir.State) ir.State {
	s = s.Clone()
	s.IsLoading = true
	return s
}

// finishAdd inserts the new task at the front (unless the title is empty),
// clears the draft and closes the loading window.
func (r *Reducer) finishAdd(s ir.State, title string) (ir.State, Outcome) {
	s = s.Clone()
	out := applied()

	if title == "" {
		out = rejected(ReasonEmptyTitle)
	} else {
		task := ir.Task{
			ID:          r.ids.Next(title),
			Title:       title,
			IsFavorited: r.favorite(title),
		}
		s.Tasks = append([]ir.Task{task}, s.Tasks...)
	}

	s.DraftInput = ""
	s.IsInputValid = ValidInput(s.DraftInput)
	s.IsLoading = false
	return s, out
}

// abortAdd closes the loading window without inserting anything.
func (r *Reducer) abortAdd(s ir.State) ir.State {
	s = s.Clone()
	s.IsLoading = false
	return s
}

// resetIDs rewinds the ID generator if it supports it.
func (r *Reducer) resetIDs() {
	if rs, ok := r.ids.(Resetter); ok {
		rs.Reset()
	}
}
