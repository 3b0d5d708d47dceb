package rabbitmq

import (
	"context"
	"dreamreel/constant"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Topology names the exchange, queue and dead-letter pair of one job type.
type Topology struct {
	Exchange      string
	Queue         string
	RoutingKey    string
	DLX           string
	DLQ           string
	DLQRoutingKey string
}

var PipelineTopology = Topology{
	Exchange:      constant.PipelineExchange,
	Queue:         constant.PipelineQueue,
	RoutingKey:    constant.PipelineRoutingKey,
	DLX:           constant.PipelineDLX,
	DLQ:           constant.PipelineDLQ,
	DLQRoutingKey: constant.PipelineDLQRoutingKey,
}

func (t Topology) declareExchange(ctx context.Context, ch *amqp.Channel, kind string) error {
	err := ch.ExchangeDeclare(t.Exchange, kind, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("exchange", t.Exchange).Msg("failed to declare exchange")
	}
	return err
}

func (t Topology) declare(ctx context.Context, ch *amqp.Channel, kind string) error {
	if err := t.declareExchange(ctx, ch, kind); err != nil {
		return err
	}

	err := ch.ExchangeDeclare(t.DLX, kind, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("exchange", t.DLX).Msg("failed to declare dlx")
		return err
	}

	dlq, err := ch.QueueDeclare(t.DLQ, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("queue", t.DLQ).Msg("failed to declare dlq")
		return err
	}

	err = ch.QueueBind(dlq.Name, t.DLQRoutingKey, t.DLX, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("queue", t.DLQ).Msg("failed to bind dlq")
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    t.DLX,
		"x-dead-letter-routing-key": t.DLQRoutingKey,
	}
	q, err := ch.QueueDeclare(t.Queue, true, false, false, false, args)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("queue", t.Queue).Msg("failed to declare queue")
		return err
	}

	err = ch.QueueBind(q.Name, t.RoutingKey, t.Exchange, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("queue", t.Queue).Msg("failed to bind queue")
		return err
	}
	return nil
}
