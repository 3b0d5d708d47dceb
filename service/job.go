package service

import (
	"context"
	"dreamreel/constant"
	"dreamreel/dto"
	"dreamreel/entities"
	"dreamreel/pkg/rabbitmq"
	"dreamreel/repository"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"os"
	"path/filepath"
	"strings"
)

var ErrNonRetryable = errors.New("non-retryable error")

type Pipeline interface {
	Run(ctx context.Context, in PipelineInput) (*entities.Dream, error)
}

type AudioStore interface {
	PutAudio(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key, path string) error
	Remove(ctx context.Context, key string) error
}

type JobService interface {
	Enqueue(ctx context.Context, in PipelineInput) (uuid.UUID, error)
	Process(ctx context.Context, message dto.PipelineMessage) error
	Find(ctx context.Context, id uuid.UUID) (*entities.Job, error)
}

type jobService struct {
	repo      repository.JobRepository
	media     AudioStore
	publisher rabbitmq.Publisher
	pipeline  Pipeline
	tempRoot  string
}

func NewJobService(repo repository.JobRepository, media AudioStore, publisher rabbitmq.Publisher, pipeline Pipeline) JobService {
	return &jobService{
		repo:      repo,
		media:     media,
		publisher: publisher,
		pipeline:  pipeline,
		tempRoot:  "temp",
	}
}

func (s *jobService) Find(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	return s.repo.FindJobById(ctx, id)
}

// Enqueue stores the recording, records a PENDING job and publishes it.
func (s *jobService) Enqueue(ctx context.Context, in PipelineInput) (uuid.UUID, error) {
	if err := ValidateAudio(len(in.Audio)); err != nil {
		return uuid.Nil, err
	}

	jobId := uuid.New()
	fileName := in.FileName
	if fileName == "" {
		fileName = "recording." + AudioExtension(in.ContentType, "")
	}
	key := RecordingKey(jobId, fileName)

	if err := s.media.PutAudio(ctx, key, in.Audio, in.ContentType); err != nil {
		return uuid.Nil, fmt.Errorf("upload recording: %w", err)
	}

	job := &entities.Job{
		ID:         jobId,
		EntityType: constant.EntityTypeDream,
		Status:     constant.JobStatusPending,
		JobType:    constant.JobTypeDreamPipeline,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("create job: %w", err)
	}

	err := s.publisher.Publish(ctx, dto.PipelineMessage{
		JobId:       jobId,
		ObjectPath:  key,
		FileName:    filepath.Base(key),
		ContentType: in.ContentType,
		Emojis:      in.Emojis,
	})
	if err != nil {
		if failErr := s.repo.FailJob(ctx, jobId, err.Error()); failErr != nil {
			zerolog.Ctx(ctx).Error().Err(failErr).Msg("failed to update job status")
		}
		return uuid.Nil, fmt.Errorf("publish job: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("job_id", jobId.String()).Msg("pipeline job queued")
	return jobId, nil
}

func (s *jobService) Process(ctx context.Context, message dto.PipelineMessage) (err error) {
	zerolog.Ctx(ctx).Info().Str("job_id", message.JobId.String()).Msg("processing job")
	job, err := s.repo.FindJobById(ctx, message.JobId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to find job by id")
		return err
	}

	if job.Status != constant.JobStatusPending {
		zerolog.Ctx(ctx).Info().Str("job_id", message.JobId.String()).Msg("job is not pending")
		return nil
	}

	if err := s.repo.UpdateStatusJob(ctx, constant.JobStatusProcessing, message.JobId); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to update job status")
		return err
	}

	// A retryable failure puts the job back to PENDING while the consumer
	// dead-letters the delivery; replaying it from the DLQ reprocesses it.
	defer func() {
		if err != nil {
			statusCtx := context.WithoutCancel(ctx)
			if errors.Is(err, ErrNonRetryable) {
				if updateErr := s.repo.FailJob(statusCtx, message.JobId, failureReason(err)); updateErr != nil {
					zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to update job status")
				}
				err = nil
			} else {
				if updateErr := s.repo.UpdateStatusJob(statusCtx, constant.JobStatusPending, message.JobId); updateErr != nil {
					zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to update job status")
				}
			}
		}
	}()

	tempDir := filepath.Join(s.tempRoot, message.JobId.String())
	defer os.RemoveAll(tempDir)

	if err = os.MkdirAll(tempDir, os.ModePerm); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to create temp directory")
		return errors.Join(ErrNonRetryable, err)
	}

	inputFilepath := filepath.Join(tempDir, filepath.Base(message.FileName))
	zerolog.Ctx(ctx).Info().Str("input_file", inputFilepath).Msg("downloading recording")
	if err = s.media.Download(ctx, message.ObjectPath, inputFilepath); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to download file")
		return err
	}

	audio, err := os.ReadFile(inputFilepath)
	if err != nil {
		return errors.Join(ErrNonRetryable, err)
	}

	dream, err := s.pipeline.Run(ctx, PipelineInput{
		Audio:       audio,
		FileName:    message.FileName,
		ContentType: message.ContentType,
		Emojis:      message.Emojis,
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errors.Join(ErrNonRetryable, err)
	}

	if err = s.repo.CompleteJob(ctx, message.JobId, dream.ID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to update job status")
		return err
	}

	zerolog.Ctx(ctx).Info().Msg("deleting original recording")
	if removeErr := s.media.Remove(ctx, message.ObjectPath); removeErr != nil {
		zerolog.Ctx(ctx).Warn().Err(removeErr).Msg("failed to delete original recording")
	}

	zerolog.Ctx(ctx).Info().Str("job_id", message.JobId.String()).Str("dream_id", dream.ID.String()).Msg("job completed")
	return nil
}

// failureReason drops the ErrNonRetryable marker from a joined error.
func failureReason(err error) string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return err.Error()
	}
	var parts []string
	for _, e := range joined.Unwrap() {
		if e != ErrNonRetryable {
			parts = append(parts, e.Error())
		}
	}
	return strings.Join(parts, "; ")
}
