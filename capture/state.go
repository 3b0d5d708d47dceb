package capture

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid capture state transition")

type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Reset is not listed: it is allowed from every state.
var transitions = map[State]State{
	StateIdle:      StateRecording,
	StateRecording: StateStopping,
	StateStopping:  StateFinished,
}

func (s State) canTransition(to State) bool {
	next, ok := transitions[s]
	return ok && next == to
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
