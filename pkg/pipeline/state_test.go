package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memesong/memesong/pkg/lyrics"
)

func TestSnapshotApply(t *testing.T) {
	s := Snapshot{Error: "old", Song: lyrics.Song{Title: "old"}, Extracted: "old"}

	s = s.Apply(Event{Type: EventState, State: Validating})
	assert.True(t, s.Busy)
	assert.Equal(t, "old", s.Error)

	s = s.Apply(Event{Type: EventStarted})
	assert.Empty(t, s.Error)
	assert.Empty(t, s.Extracted)
	assert.True(t, s.Song.Empty())

	s = s.Apply(Event{Type: EventProgress, Progress: 40})
	s = s.Apply(Event{Type: EventStatus, Status: "working"})
	assert.Equal(t, 40, s.Progress)
	assert.Equal(t, "working", s.Status)

	s = s.Apply(Event{Type: EventState, State: Failed})
	s = s.Apply(Event{Type: EventError, Err: &Error{Kind: ErrCompletion, Message: "nope"}})
	assert.False(t, s.Busy)
	assert.Equal(t, 0, s.Progress)
	assert.Equal(t, "nope", s.Error)

	s = s.Apply(Event{Type: EventState, State: Idle})
	assert.Empty(t, s.Status)
	assert.Equal(t, "nope", s.Error)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "friendly", Message(&Error{Kind: ErrExtraction, Message: "friendly", Err: errors.New("raw")}))
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(Snapshot{State: AwaitingCompletion})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"awaiting_completion"`)
	assert.Equal(t, "unknown", State(42).String())
}

func TestSnapshotDoneResetsProgress(t *testing.T) {
	s := Snapshot{}.Apply(Event{Type: EventState, State: ExtractingText})
	s = s.Apply(Event{Type: EventProgress, Progress: 100})
	s = s.Apply(Event{Type: EventState, State: Done})
	assert.False(t, s.Busy)
	assert.Equal(t, 0, s.Progress)
}
