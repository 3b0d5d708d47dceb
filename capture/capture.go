package capture

import (
	"context"
	"time"
)

// Microphone hands out a live input stream. Opening fails when the device is
// missing or access is denied.
type Microphone interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is one open input device shared read-only by any number of recorders.
type Stream interface {
	NewRecorder(name string) (Recorder, error)
	Close() error
}

// Recorder encodes the stream from Start until Stop and returns the encoded bytes.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() ([]byte, error)
}

// ChunkSink receives finished chunks. Submit must not block.
type ChunkSink interface {
	Submit(index int, audio []byte) bool
}

// Fragment is the transcription of one chunk. Either field may be empty.
type Fragment struct {
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	Emoji      string `json:"emoji"`
}

type ChunkTranscriber interface {
	TranscribeChunk(ctx context.Context, index int, audio []byte) (Fragment, error)
}

type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	NewTimer(d time.Duration) Timer
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

func (realClock) NewTimer(d time.Duration) Timer { return realTimer{time.NewTimer(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }
