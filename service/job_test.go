package service

import (
	"context"
	"dreamreel/constant"
	"dreamreel/entities"
	"errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func newTestJobService(t *testing.T, pipeline Pipeline) (*jobService, *fakeJobRepo, *fakeAudioStore, *fakePublisher) {
	t.Helper()
	repo := newFakeJobRepo()
	media := newFakeAudioStore()
	pub := &fakePublisher{}
	svc := NewJobService(repo, media, pub, pipeline).(*jobService)
	svc.tempRoot = t.TempDir()
	return svc, repo, media, pub
}

func TestJobService_EnqueueThenProcess(t *testing.T) {
	dreamID := uuid.New()
	pipeline := &fakePipeline{dream: &entities.Dream{ID: dreamID}}
	svc, repo, media, pub := newTestJobService(t, pipeline)
	ctx := context.Background()

	in := flightInput()
	jobId, err := svc.Enqueue(ctx, in)
	require.NoError(t, err)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, jobId, msg.JobId)
	assert.Equal(t, "recordings/"+jobId.String()+"/dream.webm", msg.ObjectPath)
	assert.Equal(t, in.Emojis, msg.Emojis)
	assert.Contains(t, media.objects, msg.ObjectPath)

	job, err := svc.Find(ctx, jobId)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusPending, job.Status)
	assert.Equal(t, constant.JobTypeDreamPipeline, job.JobType)

	require.NoError(t, svc.Process(ctx, msg))

	job, _ = repo.FindJobById(ctx, jobId)
	assert.Equal(t, constant.JobStatusCompleted, job.Status)
	require.NotNil(t, job.EntityId)
	assert.Equal(t, dreamID, *job.EntityId)
	assert.Equal(t, in.Audio, pipeline.input.Audio)
	assert.Equal(t, in.Emojis, pipeline.input.Emojis)
	assert.Equal(t, []string{msg.ObjectPath}, media.removed)
}

func TestJobService_PipelineFailureMarksFailed(t *testing.T) {
	pipeline := &fakePipeline{err: ErrStructureFailed}
	svc, repo, media, pub := newTestJobService(t, pipeline)
	ctx := context.Background()

	jobId, err := svc.Enqueue(ctx, flightInput())
	require.NoError(t, err)

	require.NoError(t, svc.Process(ctx, pub.messages[0]))

	job, _ := repo.FindJobById(ctx, jobId)
	assert.Equal(t, constant.JobStatusFailed, job.Status)
	assert.Equal(t, ErrStructureFailed.Error(), job.Error)
	assert.Nil(t, job.EntityId)
	assert.Empty(t, media.removed)
}

func TestJobService_SkipsNonPendingJobs(t *testing.T) {
	pipeline := &fakePipeline{dream: &entities.Dream{ID: uuid.New()}}
	svc, repo, _, pub := newTestJobService(t, pipeline)
	ctx := context.Background()

	jobId, err := svc.Enqueue(ctx, flightInput())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatusJob(ctx, constant.JobStatusCompleted, jobId))

	require.NoError(t, svc.Process(ctx, pub.messages[0]))
	assert.Empty(t, pipeline.input.Audio)
}

func TestJobService_MissingRecordingIsRetryable(t *testing.T) {
	svc, repo, media, pub := newTestJobService(t, &fakePipeline{})
	ctx := context.Background()

	jobId, err := svc.Enqueue(ctx, flightInput())
	require.NoError(t, err)
	delete(media.objects, pub.messages[0].ObjectPath)

	assert.Error(t, svc.Process(ctx, pub.messages[0]))
	job, _ := repo.FindJobById(ctx, jobId)
	assert.Equal(t, constant.JobStatusPending, job.Status)
}

type cancellingPipeline struct {
	cancel context.CancelFunc
}

func (p *cancellingPipeline) Run(ctx context.Context, _ PipelineInput) (*entities.Dream, error) {
	p.cancel()
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestJobService_ShutdownMidRunReturnsJobToPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, repo, media, pub := newTestJobService(t, &cancellingPipeline{cancel: cancel})

	jobId, err := svc.Enqueue(ctx, flightInput())
	require.NoError(t, err)

	err = svc.Process(ctx, pub.messages[0])
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNonRetryable)

	job, _ := repo.FindJobById(context.Background(), jobId)
	assert.Equal(t, constant.JobStatusPending, job.Status)
	assert.Empty(t, media.removed)
}

func TestJobService_EnqueueValidationAndPublishFailure(t *testing.T) {
	svc, repo, _, pub := newTestJobService(t, &fakePipeline{})
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, PipelineInput{Audio: []byte("tiny")})
	assert.ErrorIs(t, err, ErrAudioTooSmall)
	assert.Empty(t, repo.jobs)

	pub.err = errors.New("channel closed")
	_, err = svc.Enqueue(ctx, flightInput())
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, constant.JobStatusFailed, job.Status)
	}
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "boom", failureReason(errors.Join(ErrNonRetryable, errors.New("boom"))))
	assert.Equal(t, "plain", failureReason(errors.New("plain")))
}
