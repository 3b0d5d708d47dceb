package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	sampleRate     = 16000
	readBufferSize = 4096
	openTimeout    = 3 * time.Second
)

// FFmpegMicrophone captures raw PCM from an input device with one ffmpeg
// process and fans it out to per-recorder ffmpeg encoders producing webm/opus.
type FFmpegMicrophone struct {
	InputFormat string
	Device      string
}

func NewFFmpegMicrophone(inputFormat, device string) *FFmpegMicrophone {
	return &FFmpegMicrophone{InputFormat: inputFormat, Device: device}
}

func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found. Install with: brew install ffmpeg")
	}
	return nil
}

func (m *FFmpegMicrophone) Open(ctx context.Context) (Stream, error) {
	if err := CheckFFmpeg(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-f", m.InputFormat,
		"-i", m.Device,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &ffmpegStream{
		cmd:       cmd,
		cancel:    cancel,
		recorders: make(map[*ffmpegRecorder]struct{}),
		exited:    make(chan struct{}),
	}
	firstRead := make(chan struct{})
	go s.pump(ctx, stdout, firstRead)

	select {
	case <-firstRead:
		return s, nil
	case <-s.exited:
		cancel()
		return nil, fmt.Errorf("microphone %q unavailable: %s", m.Device, strings.TrimSpace(stderr.String()))
	case <-time.After(openTimeout):
		_ = s.Close()
		return nil, fmt.Errorf("microphone %q produced no audio within %s", m.Device, openTimeout)
	}
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	exited chan struct{}

	mu        sync.Mutex
	recorders map[*ffmpegRecorder]struct{}
	closeOnce sync.Once
}

func (s *ffmpegStream) pump(ctx context.Context, r io.Reader, firstRead chan struct{}) {
	defer close(s.exited)
	buf := make([]byte, readBufferSize)
	signalled := false
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if !signalled {
				close(firstRead)
				signalled = true
			}
			s.broadcast(ctx, buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("microphone stream ended")
			}
			_ = s.cmd.Wait()
			return
		}
	}
}

func (s *ffmpegStream) broadcast(ctx context.Context, pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for rec := range s.recorders {
		if _, err := rec.stdin.Write(pcm); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("recorder", rec.name).Msg("recorder stopped accepting audio")
			delete(s.recorders, rec)
		}
	}
}

func (s *ffmpegStream) NewRecorder(name string) (Recorder, error) {
	return &ffmpegRecorder{stream: s, name: name}, nil
}

func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.exited
	})
	return nil
}

func (s *ffmpegStream) attach(r *ffmpegRecorder) {
	s.mu.Lock()
	s.recorders[r] = struct{}{}
	s.mu.Unlock()
}

func (s *ffmpegStream) detach(r *ffmpegRecorder) {
	s.mu.Lock()
	delete(s.recorders, r)
	s.mu.Unlock()
}

type ffmpegRecorder struct {
	stream *ffmpegStream
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    bytes.Buffer
	stderr bytes.Buffer
}

func (r *ffmpegRecorder) Start(ctx context.Context) error {
	r.cmd = exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
		"-c:a", "libopus",
		"-f", "webm",
		"pipe:1",
	)
	r.cmd.Stdout = &r.out
	r.cmd.Stderr = &r.stderr
	stdin, err := r.cmd.StdinPipe()
	if err != nil {
		return err
	}
	r.stdin = stdin
	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("start encoder %s: %w", r.name, err)
	}
	r.stream.attach(r)
	return nil
}

func (r *ffmpegRecorder) Stop() ([]byte, error) {
	if r.cmd == nil {
		return nil, fmt.Errorf("recorder %s was not started", r.name)
	}
	r.stream.detach(r)
	_ = r.stdin.Close()
	if err := r.cmd.Wait(); err != nil {
		return nil, fmt.Errorf("encoder %s: %w: %s", r.name, err, strings.TrimSpace(r.stderr.String()))
	}
	return r.out.Bytes(), nil
}
