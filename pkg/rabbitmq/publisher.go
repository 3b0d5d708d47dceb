package rabbitmq

import (
	"context"
	"dreamreel/config"
	"encoding/json"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher interface {
	Publish(ctx context.Context, message any) error
}

type publisher struct {
	conn     *amqp.Connection
	cfg      *config.RabbitMQ
	topology Topology
}

// Publish sends message as a persistent JSON body on the topology's routing key.
func (p publisher) Publish(ctx context.Context, message any) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := p.topology.declareExchange(ctx, ch, p.cfg.Kind); err != nil {
		return err
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		p.topology.Exchange,
		p.topology.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ, topology Topology) Publisher {
	return &publisher{
		conn:     conn,
		cfg:      cfg,
		topology: topology,
	}
}
