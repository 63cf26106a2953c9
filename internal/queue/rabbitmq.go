package queue

import (
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// RabbitMQQueue backs the Queue interface with a durable broker queue.
type RabbitMQQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitMQQueue(url string) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &RabbitMQQueue{conn: conn, ch: ch}, nil
}

func (q *RabbitMQQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *RabbitMQQueue) Publish(topic string, payload []byte) error {
	queue, err := q.declare(topic)
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         payload,
		},
	)
}

// maxDeliveryRetries bounds how many times a failed job is republished
// before it is dropped.
const maxDeliveryRetries = 3

// deliveryRetryCount reads the retry header off a delivery. The broker may
// hand the value back as any integer width, and the first delivery carries
// no header at all.
func deliveryRetryCount(headers amqp.Table) int32 {
	switch v := headers["x-retry-count"].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

// Subscribe consumes the topic until the channel closes. A failed delivery
// is republished with an incremented x-retry-count header up to three
// times, then dropped; the original is acked either way so a permanently
// failing job never spins on the queue.
func (q *RabbitMQQueue) Subscribe(topic string, handler func(payload []byte) error) error {
	queue, err := q.declare(topic)
	if err != nil {
		return err
	}

	msgs, err := q.ch.Consume(
		queue.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			err := handler(d.Body)
			if err == nil {
				d.Ack(false)
				continue
			}

			retries := deliveryRetryCount(d.Headers)
			logCtx := log.WithError(err).WithField("retries", retries)
			if retries >= maxDeliveryRetries {
				logCtx.Error("dropping job, retries exhausted")
				d.Ack(false)
				continue
			}

			if pubErr := q.ch.Publish("", queue.Name, false, false, amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Headers:      amqp.Table{"x-retry-count": retries + 1},
				Body:         d.Body,
			}); pubErr != nil {
				logCtx.WithField("publish_error", pubErr).Error("failed to republish job for retry")
				d.Nack(false, true) // broker requeue as last resort
				continue
			}
			logCtx.Warn("queue handler failed, job requeued")
			d.Ack(false)
		}
	}()

	return nil
}

func (q *RabbitMQQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*RabbitMQQueue)(nil)
