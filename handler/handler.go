package handler

import (
	"context"
	"dreamreel/dto"
	"dreamreel/service"
	"encoding/json"
	"fmt"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type ServiceDependencies struct {
	JobService service.JobService
}

// PipelineHandler rejects undecodable bodies so the consumer dead-letters them.
func PipelineHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.PipelineMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal pipeline message")
		return fmt.Errorf("decode pipeline message: %w", err)
	}

	logger := zerolog.Ctx(ctx).With().Str("job_id", job.JobId.String()).Logger()
	ctx = logger.WithContext(ctx)

	err := deps.JobService.Process(ctx, job)
	if err != nil {
		return err
	}

	return nil
}
