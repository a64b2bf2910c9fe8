package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const holdQueueName = "holds.lifecycle"

// AMQPPublisher publishes hold events to RabbitMQ.  Each publish dials
// its own connection; hold mutations are rare enough (a handful per
// booking session) that connection reuse is not worth the lifecycle
// management.  Errors are logged and returned so callers can ignore
// failures without interrupting the booking flow.
type AMQPPublisher struct {
	url string
}

// NewAMQPPublisher returns a publisher for the given broker URL.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

// PublishHoldEvent sends one event to the holds.lifecycle queue.
// Messages are persistent and the queue is durable so audit consumers
// can catch up after a broker restart.
func (p *AMQPPublisher) PublishHoldEvent(ctx context.Context, ev HoldEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare keeps publisher and consumer decoupled.
	if _, err := ch.QueueDeclare(
		holdQueueName, // name
		true,          // durable
		false,         // autoDelete
		false,         // exclusive
		false,         // noWait
		nil,           // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",            // default exchange
		holdQueueName, // routing key = queue name
		false,         // mandatory
		false,         // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
