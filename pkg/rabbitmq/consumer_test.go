package rabbitmq

import (
	"context"
	"dreamreel/constant"
	"errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"testing"
)

type settlement struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	settled []settlement
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.settled = append(f.settled, settlement{tag: tag, ack: true})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.settled = append(f.settled, settlement{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestConsumer_HandleSettlesDeliveries(t *testing.T) {
	failing := errors.New("bad body")
	c := NewConsumer[string](nil, nil, PipelineTopology, 2, func(_ context.Context, msg amqp.Delivery, deps string) error {
		assert.Equal(t, "deps", deps)
		if string(msg.Body) == "bad" {
			return failing
		}
		return nil
	}).(*consumer[string])
	assert.Equal(t, 2, c.numWorkers)

	ack := &fakeAcknowledger{}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}, "deps", 1)
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("bad")}, "deps", 1)

	assert.Equal(t, []settlement{
		{tag: 1, ack: true},
		{tag: 2, ack: false, requeue: false},
	}, ack.settled)
}

func TestNewConsumer_AtLeastOneWorker(t *testing.T) {
	c := NewConsumer[struct{}](nil, nil, PipelineTopology, 0, nil).(*consumer[struct{}])
	assert.Equal(t, 1, c.numWorkers)
}

func TestPipelineTopology_DeadLettersToDLQ(t *testing.T) {
	assert.Equal(t, constant.PipelineQueue, PipelineTopology.Queue)
	assert.Equal(t, constant.PipelineDLX, PipelineTopology.DLX)
	assert.Equal(t, constant.PipelineDLQ, PipelineTopology.DLQ)
	assert.NotEqual(t, PipelineTopology.Exchange, PipelineTopology.DLX)
}
