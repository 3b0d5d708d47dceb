package service

import (
	"context"
	"dreamreel/constant"
	"dreamreel/dto"
	"dreamreel/entities"
	"dreamreel/pkg/groq"
	"dreamreel/pkg/veo"
	"errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"os"
	"sync"
)

type fakeSTT struct {
	text  string
	err   error
	calls int
	name  string
}

func (f *fakeSTT) Transcribe(_ context.Context, fileName string, _ []byte) (*groq.Transcription, error) {
	f.calls++
	f.name = fileName
	if f.err != nil {
		return nil, f.err
	}
	return &groq.Transcription{Text: f.text, Language: "english", Duration: 3}, nil
}

type fakeChat struct {
	answers map[string]string
	err     error
	calls   int
}

// Chat tells the emoji prompt apart from the structuring prompt by its token budget.
func (f *fakeChat) Chat(_ context.Context, _ []groq.Message, opts groq.ChatOptions) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if opts.MaxTokens == 5 {
		return f.answers["emoji"], nil
	}
	return f.answers["structure"], nil
}

type fakeVideo struct {
	urls   []string
	err    error
	calls  int
	prompt string
	opts   veo.Options
}

func (f *fakeVideo) Generate(_ context.Context, prompt string, opts veo.Options) ([]string, error) {
	f.calls++
	f.prompt = prompt
	f.opts = opts
	return f.urls, f.err
}

type fakeArchive struct {
	created []entities.Dream
	err     error
}

func (f *fakeArchive) Create(_ context.Context, d entities.Dream) (*entities.Dream, error) {
	if f.err != nil {
		return nil, f.err
	}
	d.ID = uuid.New()
	f.created = append(f.created, d)
	return &d, nil
}

type fakeProfiles struct {
	profile entities.Profile
}

func (f fakeProfiles) Get(context.Context) (entities.Profile, error) {
	return f.profile, nil
}

type fakeThumbs struct {
	url string
	err error
}

func (f fakeThumbs) Thumbnail(context.Context, string) (string, error) {
	return f.url, f.err
}

type fakeMirror struct {
	url string
	err error
}

func (f fakeMirror) MirrorVideo(context.Context, string) (string, error) {
	return f.url, f.err
}

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entities.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[uuid.UUID]*entities.Job{}}
}

func (r *fakeJobRepo) GetDB() *gorm.DB { return nil }

func (r *fakeJobRepo) CreateJob(_ context.Context, job *entities.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeJobRepo) FindJobById(_ context.Context, id uuid.UUID) (*entities.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *fakeJobRepo) UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id].Status = status
	return nil
}

func (r *fakeJobRepo) CompleteJob(ctx context.Context, id uuid.UUID, dreamId uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id].Status = constant.JobStatusCompleted
	r.jobs[id].EntityId = &dreamId
	return nil
}

func (r *fakeJobRepo) FailJob(ctx context.Context, id uuid.UUID, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id].Status = constant.JobStatusFailed
	r.jobs[id].Error = reason
	return nil
}

type fakeAudioStore struct {
	objects map[string][]byte
	removed []string
}

func newFakeAudioStore() *fakeAudioStore {
	return &fakeAudioStore{objects: map[string][]byte{}}
}

func (f *fakeAudioStore) PutAudio(_ context.Context, key string, data []byte, _ string) error {
	f.objects[key] = data
	return nil
}

func (f *fakeAudioStore) Download(_ context.Context, key, path string) error {
	data, ok := f.objects[key]
	if !ok {
		return errors.New("NoSuchKey")
	}
	return os.WriteFile(path, data, 0o644)
}

func (f *fakeAudioStore) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	delete(f.objects, key)
	return nil
}

type fakePublisher struct {
	messages []dto.PipelineMessage
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, message any) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message.(dto.PipelineMessage))
	return nil
}

type fakePipeline struct {
	dream *entities.Dream
	err   error
	input PipelineInput
}

func (f *fakePipeline) Run(_ context.Context, in PipelineInput) (*entities.Dream, error) {
	f.input = in
	return f.dream, f.err
}
