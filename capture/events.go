package capture

import (
	"github.com/google/uuid"
	"time"
)

type Event interface {
	isEvent()
}

type StopReason string

const (
	StopReasonUser    StopReason = "user"
	StopReasonCeiling StopReason = "ceiling"
)

type SessionStarted struct {
	SessionID uuid.UUID
	At        time.Time
}

type ChunkStarted struct {
	Index int
}

type ChunkCompleted struct {
	Index  int
	Size   int
	Queued bool
}

// ChunkDiscarded reports a chunk below the minimum size.
type ChunkDiscarded struct {
	Index int
	Size  int
}

type ChunkFailed struct {
	Index int
	Err   error
}

type SessionStopping struct {
	Reason  StopReason
	Elapsed time.Duration
}

// SessionFinished carries the continuous recording. Err is set when the
// continuous recorder failed; Audio is then empty.
type SessionFinished struct {
	SessionID uuid.UUID
	Audio     []byte
	Elapsed   time.Duration
	Err       error
}

func (SessionStarted) isEvent()  {}
func (ChunkStarted) isEvent()    {}
func (ChunkCompleted) isEvent()  {}
func (ChunkDiscarded) isEvent()  {}
func (ChunkFailed) isEvent()     {}
func (SessionStopping) isEvent() {}
func (SessionFinished) isEvent() {}
