package tui

import (
	"dreamreel/capture"
	"dreamreel/entities"
	"time"
)

type captureEventMsg struct {
	Event capture.Event
}

type tickMsg time.Time

type recordingStartedMsg struct {
	Err error
}

// pipelineDoneMsg is dropped when Gen no longer matches the model's run.
type pipelineDoneMsg struct {
	Gen   int
	Dream *entities.Dream
	Err   error
}

type dreamsLoadedMsg struct {
	Dreams []entities.Dream
	Err    error
}

type dreamUpdatedMsg struct {
	Dream *entities.Dream
	Err   error
}

type dreamDeletedMsg struct {
	Err error
}

type profileLoadedMsg struct {
	Profile entities.Profile
	Err     error
}

type profileSavedMsg struct {
	Err error
}

type profileClearedMsg struct {
	Err error
}
