package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskIsComparesIDOnly(t *testing.T) {
	a := Task{ID: "task-1", Title: "Buy milk"}
	b := Task{ID: "task-1", Title: "Buy oat milk", IsFavorited: true}
	c := Task{ID: "task-2", Title: "Buy milk"}

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c), "same title is not same task")
}

func TestStateCloneDoesNotAlias(t *testing.T) {
	s := State{Tasks: []Task{{ID: "task-1", Title: "a"}}}
	c := s.Clone()
	c.Tasks[0].Title = "changed"

	assert.Equal(t, "a", s.Tasks[0].Title)
}

func TestStateEquality(t *testing.T) {
	s := State{Tasks: []Task{{ID: "task-1", Title: "a"}}, IsInputValid: true, DraftInput: "abcd"}
	other := s.Clone()
	other.Tasks[0].ID = "task-9"

	assert.True(t, s.Equal(s.Clone()))
	assert.False(t, s.Equal(other))
	assert.True(t, s.EqualIgnoringIDs(other))

	other.DraftInput = ""
	assert.False(t, s.EqualIgnoringIDs(other))
}

func TestStateIndexOf(t *testing.T) {
	s := State{Tasks: []Task{{ID: "b"}, {ID: "a"}}}

	assert.Equal(t, 1, s.IndexOf("a"))
	assert.Equal(t, -1, s.IndexOf("zzz"))
}

func TestInitialStateIsEmpty(t *testing.T) {
	s := InitialState()

	assert.NotNil(t, s.Tasks)
	assert.Empty(t, s.Tasks)
	assert.False(t, s.IsLoading)
	assert.False(t, s.IsInputValid)
	assert.Empty(t, s.DraftInput)
}
