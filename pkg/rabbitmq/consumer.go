package rabbitmq

import (
	"context"
	"dreamreel/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"sync"
)

type Consumer[T any] interface {
	Consume(ctx context.Context, dependencies T) error
}

type consumer[T any] struct {
	conn       *amqp.Connection
	cfg        *config.RabbitMQ
	topology   Topology
	handler    func(ctx context.Context, msg amqp.Delivery, dependencies T) error
	numWorkers int
}

// Consume acks every delivery the handler accepts. A handler error sends the
// delivery to the dead-letter queue without requeueing it.
func (c consumer[T]) Consume(ctx context.Context, dependencies T) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := c.topology.declare(ctx, ch, c.cfg.Kind); err != nil {
		return err
	}

	queueName := c.topology.Queue
	err = ch.Qos(c.numWorkers, 0, false)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("queue", queueName).Msg("failed to set QoS")
		return err
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("queue", queueName).Msg("failed to consume queue")
		return err
	}
	zerolog.Ctx(ctx).Info().Str("queue", queueName).Int("workers", c.numWorkers).Msg("consuming")

	jobs := make(chan amqp.Delivery, c.numWorkers)
	var wg sync.WaitGroup
	for i := 1; i <= c.numWorkers; i++ {
		wg.Add(1)
		go func(workerId int) {
			defer wg.Done()
			for msg := range jobs {
				c.handle(ctx, msg, dependencies, workerId)
			}
		}(i)
	}

	for {
		select {
		case delivery, ok := <-deliveries:
			if !ok {
				close(jobs)
				wg.Wait()
				return nil
			}

			jobs <- delivery
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
}

func (c consumer[T]) handle(ctx context.Context, msg amqp.Delivery, dependencies T, workerId int) {
	if err := c.handler(ctx, msg, dependencies); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int("worker", workerId).Str("queue", c.topology.Queue).Msg("failed to handle message, dead-lettering")
		if err := msg.Nack(false, false); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to reject message")
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to acknowledge message")
	}
}

func NewConsumer[T any](
	conn *amqp.Connection,
	cfg *config.RabbitMQ,
	topology Topology,
	numWorkers int,
	handler func(ctx context.Context, msg amqp.Delivery, dependencies T) error,
) Consumer[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &consumer[T]{
		conn:       conn,
		cfg:        cfg,
		topology:   topology,
		handler:    handler,
		numWorkers: numWorkers,
	}
}
