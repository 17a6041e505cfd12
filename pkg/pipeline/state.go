package pipeline

import (
	"errors"

	"github.com/memesong/memesong/pkg/lyrics"
)

// State is the step a generation run is in.
type State int

const (
	Idle State = iota
	Validating
	ExtractingText
	Cleaning
	AwaitingCompletion
	Done
	Failed
)

var stateNames = [...]string{
	Idle:               "idle",
	Validating:         "validating",
	ExtractingText:     "extracting_text",
	Cleaning:           "cleaning",
	AwaitingCompletion: "awaiting_completion",
	Done:               "done",
	Failed:             "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Active reports whether a run is in progress in this state.
func (s State) Active() bool {
	switch s {
	case Idle, Done, Failed:
		return false
	}
	return true
}

type EventType int

const (
	// EventState is a state transition.
	EventState EventType = iota
	// EventStarted marks the start of a validated run. Transient fields are
	// cleared.
	EventStarted
	EventProgress
	EventStatus
	// EventText carries the cleaned recognized text.
	EventText
	EventSong
	EventError
)

// Event is published to observers as the run advances.
type Event struct {
	Type     EventType
	State    State
	Progress int
	Status   string
	Text     string
	Song     lyrics.Song
	Err      error
}

// Snapshot is the observable state of a generator.
type Snapshot struct {
	State     State       `json:"state"`
	Busy      bool        `json:"busy"`
	Progress  int         `json:"progress"`
	Status    string      `json:"status"`
	Extracted string      `json:"extracted"`
	Song      lyrics.Song `json:"song"`
	Error     string      `json:"error,omitempty"`
}

// Apply returns the snapshot updated with the event.
func (s Snapshot) Apply(e Event) Snapshot {
	switch e.Type {
	case EventState:
		s.State = e.State
		s.Busy = e.State.Active()
		if !s.Busy {
			s.Progress = 0
		}
		if e.State == Idle {
			s.Status = ""
		}
	case EventStarted:
		s.Error = ""
		s.Progress = 0
		s.Extracted = ""
		s.Song = lyrics.Song{}
	case EventProgress:
		s.Progress = e.Progress
	case EventStatus:
		s.Status = e.Status
	case EventText:
		s.Extracted = e.Text
	case EventSong:
		s.Song = e.Song
	case EventError:
		s.Error = Message(e.Err)
		s.Progress = 0
	}
	return s
}

// Message returns the user facing text of an error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Message
	}
	return err.Error()
}
