package capture

import (
	"context"
	"dreamreel/constant"
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"sync"
	"time"
)

const eventBuffer = 256

type Config struct {
	ChunkInterval time.Duration
	MaxDuration   time.Duration
	// Clock defaults to the wall clock.
	Clock Clock
}

// Controller owns one microphone session at a time. It runs a continuous
// recorder for the whole session and rotates a chunk recorder on every tick.
type Controller struct {
	mic    Microphone
	cfg    Config
	clock  Clock
	events chan Event

	mu      sync.Mutex
	state   State
	session *session
}

type session struct {
	id        uuid.UUID
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	stopReq   chan StopReason

	stream     Stream
	continuous Recorder
	sink       ChunkSink

	chunk      Recorder
	chunkIndex int
	nextIndex  int
}

func NewController(mic Microphone, cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Controller{
		mic:    mic,
		cfg:    cfg,
		clock:  clock,
		events: make(chan Event, eventBuffer),
		state:  StateIdle,
	}
}

func (c *Controller) Events() <-chan Event {
	return c.events
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed is zero outside of a session.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return 0
	}
	return c.clock.Now().Sub(c.session.startedAt)
}

// Start opens the microphone and begins both recorders. Finished chunks go to
// sink, which may be nil. On error the controller stays idle.
func (c *Controller) Start(ctx context.Context, sink ChunkSink) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.canTransition(StateRecording) {
		return uuid.Nil, transitionError(c.state, StateRecording)
	}

	stream, err := c.mic.Open(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("open microphone: %w", err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	continuous, err := stream.NewRecorder("continuous")
	if err == nil {
		err = continuous.Start(sessCtx)
	}
	if err != nil {
		cancel()
		_ = stream.Close()
		return uuid.Nil, fmt.Errorf("start continuous recorder: %w", err)
	}

	sess := &session{
		id:         uuid.New(),
		startedAt:  c.clock.Now(),
		ctx:        sessCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
		stopReq:    make(chan StopReason, 1),
		stream:     stream,
		continuous: continuous,
		sink:       sink,
	}
	c.session = sess
	c.state = StateRecording

	zerolog.Ctx(ctx).Info().Str("session_id", sess.id.String()).Msg("recording started")
	c.emit(sess, SessionStarted{SessionID: sess.id, At: sess.startedAt})
	c.startChunk(sess)

	ticker := c.clock.NewTicker(c.cfg.ChunkInterval)
	timer := c.clock.NewTimer(c.cfg.MaxDuration)
	go c.run(sess, ticker, timer)

	return sess.id, nil
}

// Stop asks the running session to finish. SessionFinished follows on Events.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.canTransition(StateStopping) {
		return transitionError(c.state, StateStopping)
	}
	c.state = StateStopping
	c.session.stopReq <- StopReasonUser
	return nil
}

// Reset discards the current session from any state and returns to idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.state = StateIdle
	c.mu.Unlock()

	if sess != nil {
		sess.cancel()
		<-sess.done
	}
}

func (c *Controller) run(sess *session, ticker Ticker, timer Timer) {
	defer close(sess.done)
	defer sess.cancel()
	defer ticker.Stop()
	defer timer.Stop()

	var reason StopReason
loop:
	for {
		select {
		case <-sess.ctx.Done():
			c.discard(sess)
			return
		case <-ticker.C():
			if c.clock.Now().Sub(sess.startedAt) >= c.cfg.MaxDuration {
				// the ceiling timer closes the last chunk
				continue
			}
			c.finishChunk(sess)
			c.startChunk(sess)
		case <-timer.C():
			if c.advance(sess, StateRecording, StateStopping) {
				reason = StopReasonCeiling
				break loop
			}
			select {
			case reason = <-sess.stopReq:
				break loop
			case <-sess.ctx.Done():
				c.discard(sess)
				return
			}
		case reason = <-sess.stopReq:
			break loop
		}
	}

	elapsed := c.clock.Now().Sub(sess.startedAt)
	logger := zerolog.Ctx(sess.ctx)
	logger.Info().Str("session_id", sess.id.String()).Str("reason", string(reason)).Dur("elapsed", elapsed).Msg("recording stopping")
	c.emit(sess, SessionStopping{Reason: reason, Elapsed: elapsed})

	c.finishChunk(sess)
	audio, err := sess.continuous.Stop()
	if err != nil {
		logger.Error().Err(err).Str("session_id", sess.id.String()).Msg("continuous recorder failed")
		audio = nil
	}
	if closeErr := sess.stream.Close(); closeErr != nil {
		logger.Warn().Err(closeErr).Msg("failed to close microphone stream")
	}

	if !c.advance(sess, StateStopping, StateFinished) {
		return
	}
	logger.Info().Str("session_id", sess.id.String()).Int("bytes", len(audio)).Msg("recording finished")
	c.emit(sess, SessionFinished{SessionID: sess.id, Audio: audio, Elapsed: elapsed, Err: err})
}

// advance moves the state only while sess is still the current session.
func (c *Controller) advance(sess *session, from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != sess || c.state != from {
		return false
	}
	c.state = to
	return true
}

func (c *Controller) startChunk(sess *session) {
	index := sess.nextIndex
	sess.nextIndex++

	rec, err := sess.stream.NewRecorder(fmt.Sprintf("chunk-%d", index))
	if err == nil {
		err = rec.Start(sess.ctx)
	}
	if err != nil {
		zerolog.Ctx(sess.ctx).Warn().Err(err).Int("chunk_index", index).Msg("chunk recorder failed to start")
		c.emit(sess, ChunkFailed{Index: index, Err: err})
		return
	}
	sess.chunk = rec
	sess.chunkIndex = index
	c.emit(sess, ChunkStarted{Index: index})
}

func (c *Controller) finishChunk(sess *session) {
	if sess.chunk == nil {
		return
	}
	index := sess.chunkIndex
	data, err := sess.chunk.Stop()
	sess.chunk = nil

	logger := zerolog.Ctx(sess.ctx)
	switch {
	case err != nil:
		logger.Warn().Err(err).Int("chunk_index", index).Msg("chunk recorder failed")
		c.emit(sess, ChunkFailed{Index: index, Err: err})
	case len(data) < constant.MinAudioBytes:
		logger.Debug().Int("chunk_index", index).Int("bytes", len(data)).Msg("chunk too small, discarded")
		c.emit(sess, ChunkDiscarded{Index: index, Size: len(data)})
	default:
		queued := false
		if sess.sink != nil {
			queued = sess.sink.Submit(index, data)
		}
		c.emit(sess, ChunkCompleted{Index: index, Size: len(data), Queued: queued})
	}
}

func (c *Controller) discard(sess *session) {
	if sess.chunk != nil {
		_, _ = sess.chunk.Stop()
		sess.chunk = nil
	}
	_, _ = sess.continuous.Stop()
	_ = sess.stream.Close()
	zerolog.Ctx(sess.ctx).Info().Str("session_id", sess.id.String()).Msg("recording discarded")
}

func (c *Controller) emit(sess *session, ev Event) {
	if sess.ctx.Err() != nil {
		return
	}
	select {
	case c.events <- ev:
	case <-sess.ctx.Done():
	}
}
