package capture

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{clock: f, period: d, next: f.now.Add(d), c: make(chan time.Time, 1)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeClock) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, at: f.now.Add(d), c: make(chan time.Time, 1)}
	f.timers = append(f.timers, t)
	return t
}

// Advance fires every ticker and timer due within d.
func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	for _, t := range f.tickers {
		if t.stopped {
			continue
		}
		for !t.next.After(f.now) {
			select {
			case t.c <- t.next:
			default:
			}
			t.next = t.next.Add(t.period)
		}
	}
	for _, t := range f.timers {
		if t.stopped || t.fired || t.at.After(f.now) {
			continue
		}
		t.fired = true
		t.c <- t.at
	}
}

type fakeTicker struct {
	clock   *fakeClock
	period  time.Duration
	next    time.Time
	c       chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	c       chan time.Time
	fired   bool
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }
func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.fired && !t.stopped
	t.stopped = true
	return active
}

type fakeMic struct {
	mu       sync.Mutex
	openErr  error
	stream   *fakeStream
	payloads map[string][]byte
	failures map[string]error
}

func newFakeMic() *fakeMic {
	return &fakeMic{payloads: map[string][]byte{}, failures: map[string]error{}}
}

func (m *fakeMic) Open(context.Context) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.stream = &fakeStream{mic: m}
	return m.stream, nil
}

func (m *fakeMic) payload(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payloads[name]; ok {
		return p
	}
	return make([]byte, 2048)
}

type fakeStream struct {
	mic *fakeMic

	mu        sync.Mutex
	closed    bool
	recorders []*fakeRecorder
}

func (s *fakeStream) NewRecorder(name string) (Recorder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &fakeRecorder{name: name, stream: s}
	s.recorders = append(s.recorders, r)
	return r, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// counts returns how many recorders matching continuous were started and stopped.
func (s *fakeStream) counts(continuous bool) (started, stopped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recorders {
		if (r.name == "continuous") != continuous {
			continue
		}
		r.mu.Lock()
		if r.started {
			started++
		}
		if r.stopped {
			stopped++
		}
		r.mu.Unlock()
	}
	return started, stopped
}

// activeChunks is the number of chunk recorders started and not yet stopped.
func (s *fakeStream) activeChunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.recorders {
		r.mu.Lock()
		if r.name != "continuous" && r.started && !r.stopped {
			n++
		}
		r.mu.Unlock()
	}
	return n
}

type fakeRecorder struct {
	name   string
	stream *fakeStream

	mu      sync.Mutex
	started bool
	stopped bool
}

func (r *fakeRecorder) Start(context.Context) error {
	r.stream.mic.mu.Lock()
	err := r.stream.mic.failures[r.name]
	r.stream.mic.mu.Unlock()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *fakeRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil, errors.New("already stopped")
	}
	r.stopped = true
	r.mu.Unlock()
	return r.stream.mic.payload(r.name), nil
}

type recordingSink struct {
	mu     sync.Mutex
	chunks []int
}

func (s *recordingSink) Submit(index int, _ []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, index)
	return true
}

func (s *recordingSink) indexes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.chunks...)
}
