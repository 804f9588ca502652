package ir

// Task is one entry of the task list.
//
// ID is an opaque identifier minted once at creation. It is never derived from
// Title and never reused, so a renamed or duplicated title keeps distinct identity.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsFavorited bool   `json:"is_favorited"`
}

// Is reports whether t and other denote the same task.
// Identity is the ID alone; title and favorite flag are ignored.
func (t Task) Is(other Task) bool {
	return t.ID == other.ID
}

// State is the derived state owned by the engine's state store.
//
// Tasks are ordered most recent first.
type State struct {
	Tasks        []Task `json:"tasks"`
	IsLoading    bool   `json:"is_loading"`
	IsInputValid bool   `json:"is_input_valid"`
	DraftInput   string `json:"draft_input"`
}

// InitialState returns the empty state every store starts from and every
// replay resets to.
func InitialState() State {
	return State{Tasks: []Task{}}
}

// Clone returns a deep copy so callers can never alias the task slice.
func (s State) Clone() State {
	out := s
	out.Tasks = make([]Task, len(s.Tasks))
	copy(out.Tasks, s.Tasks)
	return out
}

// IndexOf returns the position of the task with the given ID, or -1.
func (s State) IndexOf(id string) int {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Equal reports full structural equality, task IDs included.
func (s State) Equal(other State) bool {
	if !s.EqualIgnoringIDs(other) {
		return false
	}
	for i := range s.Tasks {
		if s.Tasks[i].ID != other.Tasks[i].ID {
			return false
		}
	}
	return true
}

// EqualIgnoringIDs compares everything except task IDs.
// Used where IDs are freshly minted on each run and only shape matters.
func (s State) EqualIgnoringIDs(other State) bool {
	if s.IsLoading != other.IsLoading ||
		s.IsInputValid != other.IsInputValid ||
		s.DraftInput != other.DraftInput ||
		len(s.Tasks) != len(other.Tasks) {
		return false
	}
	for i := range s.Tasks {
		if s.Tasks[i].Title != other.Tasks[i].Title ||
			s.Tasks[i].IsFavorited != other.Tasks[i].IsFavorited {
			return false
		}
	}
	return true
}

// Record is an event as it sits in the event log.
// Seq comes from the logical clock and is strictly increasing per log.
type Record struct {
	Seq   int64 `json:"seq"`
	Event Event `json:"-"`
}
