package ir

import (
	"encoding/json"
	"fmt"
)

// Kind names an event variant. The values are stable and used on disk.
type Kind string

const (
	KindAddTaskRequested  Kind = "add_task_requested"
	KindPlaybackRequested Kind = "playback_requested"
	KindDeleteRequested   Kind = "delete_requested"
	KindInputChanged      Kind = "input_changed"
	KindFavoriteToggled   Kind = "favorite_toggled"
)

// Kinds lists every event variant in declaration order.
var Kinds = []Kind{
	KindAddTaskRequested,
	KindPlaybackRequested,
	KindDeleteRequested,
	KindInputChanged,
	KindFavoriteToggled,
}

// Event is a single recorded user intent.
//
// The set of implementations is closed: the unexported fields method keeps
// other packages from adding variants. Values are immutable once logged.
type Event interface {
	Kind() Kind

	// fields returns the canonical form used for hashing.
	fields() map[string]any
}

// AddTaskRequested asks for a new task with the given title.
type AddTaskRequested struct {
	Title string `json:"title"`
}

// PlaybackRequested asks the engine to rebuild state from its history.
type PlaybackRequested struct{}

// DeleteRequested removes the task at Index of the list as it stands when
// the event is reduced. The caller has already confirmed the deletion.
type DeleteRequested struct {
	Index int `json:"index"`
}

// InputChanged carries the raw draft text, unmodified.
type InputChanged struct {
	Text string `json:"text"`
}

// FavoriteToggled sets the favorite flag of a task.
type FavoriteToggled struct {
	TaskID      string `json:"task_id"`
	IsFavorited bool   `json:"is_favorited"`
}

func (AddTaskRequested) Kind() Kind  { return KindAddTaskRequested }
func (PlaybackRequested) Kind() Kind { return KindPlaybackRequested }
func (DeleteRequested) Kind() Kind   { return KindDeleteRequested }
func (InputChanged) Kind() Kind      { return KindInputChanged }
func (FavoriteToggled) Kind() Kind   { return KindFavoriteToggled }

func (e AddTaskRequested) fields() map[string]any {
	return map[string]any{"title": e.Title}
}

func (PlaybackRequested) fields() map[string]any {
	return map[string]any{}
}

func (e DeleteRequested) fields() map[string]any {
	return map[string]any{"index": e.Index}
}

func (e InputChanged) fields() map[string]any {
	return map[string]any{"text": e.Text}
}

func (e FavoriteToggled) fields() map[string]any {
	return map[string]any{"task_id": e.TaskID, "is_favorited": e.IsFavorited}
}

// EncodeEvent serializes the event payload for storage.
//
// The payload is plain JSON, not canonical: strings are kept byte-for-byte so a
// decoded event reduces exactly like the original.
func EncodeEvent(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("encode event: nil event")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.Kind(), err)
	}
	return data, nil
}

// DecodeEvent reverses EncodeEvent for the given kind.
func DecodeEvent(kind Kind, payload []byte) (Event, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var (
		ev  Event
		err error
	)
	switch kind {
	case KindAddTaskRequested:
		var e AddTaskRequested
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindPlaybackRequested:
		var e PlaybackRequested
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindDeleteRequested:
		var e DeleteRequested
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindInputChanged:
		var e InputChanged
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindFavoriteToggled:
		var e FavoriteToggled
		err = json.Unmarshal(payload, &e)
		ev = e
	default:
		return nil, fmt.Errorf("decode event: unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode event %s: %w", kind, err)
	}
	return ev, nil
}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}
