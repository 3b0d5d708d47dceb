package capture

import (
	"context"
	"github.com/rs/zerolog"
	"strings"
	"sync"
	"time"
)

type chunkJob struct {
	index int
	audio []byte
}

// Uploader transcribes finished chunks on a small worker pool. A full queue
// drops the chunk rather than slowing capture down, and failed uploads are
// only logged.
type Uploader struct {
	transcriber ChunkTranscriber
	ctx         context.Context
	cancel      context.CancelFunc
	jobs        chan chunkJob
	wg          sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	emojis    []string
	fragments []Fragment
}

func NewUploader(ctx context.Context, transcriber ChunkTranscriber, workers, queueSize int) *Uploader {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	u := &Uploader{
		transcriber: transcriber,
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(chan chunkJob, queueSize),
	}
	for i := 1; i <= workers; i++ {
		u.wg.Add(1)
		go u.work(i)
	}
	return u
}

func (u *Uploader) Submit(index int, audio []byte) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return false
	}
	select {
	case u.jobs <- chunkJob{index: index, audio: audio}:
		return true
	default:
		zerolog.Ctx(u.ctx).Warn().Int("chunk_index", index).Msg("upload queue full, chunk dropped")
		return false
	}
}

func (u *Uploader) work(workerId int) {
	defer u.wg.Done()
	for job := range u.jobs {
		if u.ctx.Err() != nil {
			continue
		}
		frag, err := u.transcriber.TranscribeChunk(u.ctx, job.index, job.audio)
		if err != nil {
			zerolog.Ctx(u.ctx).Debug().Err(err).Int("worker", workerId).Int("chunk_index", job.index).Msg("chunk transcription failed")
			continue
		}
		frag.ChunkIndex = job.index

		u.mu.Lock()
		u.fragments = append(u.fragments, frag)
		if frag.Emoji != "" {
			u.emojis = append(u.emojis, frag.Emoji)
		}
		u.mu.Unlock()
	}
}

// Emojis returns the emojis in the order their chunks finished transcribing.
func (u *Uploader) Emojis() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.emojis...)
}

// Fragments returns the transcribed chunks in the order they finished.
func (u *Uploader) Fragments() []Fragment {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Fragment(nil), u.fragments...)
}

// Transcript joins the fragment texts in arrival order.
func (u *Uploader) Transcript() string {
	frags := u.Fragments()
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Close stops accepting chunks and waits for queued ones to finish.
func (u *Uploader) Close() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	close(u.jobs)
	u.mu.Unlock()
	u.wg.Wait()
	u.cancel()
}

// Drain closes the uploader and gives queued uploads up to grace to finish
// before aborting the rest. It reports whether every upload completed.
func (u *Uploader) Drain(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		u.Close()
		close(done)
	}()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		zerolog.Ctx(u.ctx).Warn().Dur("grace", grace).Msg("chunk uploads still running, aborting")
		u.cancel()
		return false
	}
}

// Abort cancels in-flight uploads and discards the queue.
func (u *Uploader) Abort() {
	u.cancel()
	u.Close()
}
