package recording

import (
	"context"
	"dreamreel/capture"
	"dreamreel/client"
	"dreamreel/entities"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"sync"
	"time"
)

var ErrNoSession = errors.New("no recording in progress")

// API is the part of the dreamreel server a recording session talks to.
type API interface {
	capture.ChunkTranscriber
	CreateDream(ctx context.Context, audio []byte, emojis []string) (client.Created, error)
	WaitForJob(ctx context.Context, jobId uuid.UUID, interval time.Duration) (*entities.Dream, error)
}

type Config struct {
	Capture         capture.Config
	UploadWorkers   int
	UploadQueue     int
	JobPollInterval time.Duration
	// DrainGrace is how long Submit lets in-flight chunk uploads finish
	// before the pipeline starts without them.
	DrainGrace time.Duration
}

// Session ties the capture controller to the chunk uploader and hands the
// finished recording to the server.
type Session struct {
	api  API
	cfg  Config
	ctrl *capture.Controller

	mu       sync.Mutex
	uploader *capture.Uploader
}

func NewSession(mic capture.Microphone, api API, cfg Config) *Session {
	if cfg.JobPollInterval <= 0 {
		cfg.JobPollInterval = 2 * time.Second
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = 3 * time.Second
	}
	return &Session{
		api:  api,
		cfg:  cfg,
		ctrl: capture.NewController(mic, cfg.Capture),
	}
}

func (s *Session) Events() <-chan capture.Event {
	return s.ctrl.Events()
}

func (s *Session) State() capture.State {
	return s.ctrl.State()
}

func (s *Session) Elapsed() time.Duration {
	return s.ctrl.Elapsed()
}

func (s *Session) Start(ctx context.Context) (uuid.UUID, error) {
	uploader := capture.NewUploader(ctx, s.api, s.cfg.UploadWorkers, s.cfg.UploadQueue)
	id, err := s.ctrl.Start(ctx, uploader)
	if err != nil {
		uploader.Abort()
		return uuid.Nil, err
	}

	s.mu.Lock()
	s.uploader = uploader
	s.mu.Unlock()
	return id, nil
}

func (s *Session) Stop() error {
	return s.ctrl.Stop()
}

// Emojis returns the emoji stream collected so far.
func (s *Session) Emojis() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploader == nil {
		return nil
	}
	return s.uploader.Emojis()
}

// Transcript returns the live chunk transcript in arrival order.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploader == nil {
		return ""
	}
	return s.uploader.Transcript()
}

// Reset discards the session and every pending chunk upload.
func (s *Session) Reset() {
	s.ctrl.Reset()
	s.mu.Lock()
	uploader := s.uploader
	s.uploader = nil
	s.mu.Unlock()
	if uploader != nil {
		uploader.Abort()
	}
}

// Submit sends the finished recording to the server and waits for the
// archived dream. Chunk uploads get a short grace period to land their
// emojis; whatever is still running after that is abandoned.
func (s *Session) Submit(ctx context.Context, finished capture.SessionFinished) (*entities.Dream, error) {
	s.mu.Lock()
	uploader := s.uploader
	s.mu.Unlock()
	if uploader == nil {
		return nil, ErrNoSession
	}
	if finished.Err != nil {
		uploader.Abort()
		return nil, fmt.Errorf("recording failed: %w", finished.Err)
	}
	if !uploader.Drain(s.cfg.DrainGrace) {
		zerolog.Ctx(ctx).Info().Msg("starting pipeline without pending chunk uploads")
	}
	emojis := uploader.Emojis()

	logger := zerolog.Ctx(ctx).With().Str("session_id", finished.SessionID.String()).Logger()
	logger.Info().Int("bytes", len(finished.Audio)).Strs("emojis", emojis).Msg("submitting recording")

	created, err := s.api.CreateDream(ctx, finished.Audio, emojis)
	if err != nil {
		return nil, err
	}
	if created.Dream != nil {
		return created.Dream, nil
	}
	if created.JobId == nil {
		return nil, fmt.Errorf("server returned neither a dream nor a job")
	}
	logger.Info().Str("job_id", created.JobId.String()).Msg("dream queued, waiting for worker")
	return s.api.WaitForJob(ctx, *created.JobId, s.cfg.JobPollInterval)
}
