package config

import (
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer delivers messages from one durable queue to a handler. A handler
// error nacks the message back onto the queue for redelivery.
type Consumer struct {
	channel *amqp.Channel
	queue   string
}

func NewConsumer(queueName string) (*Consumer, error) {
	if RabbitMQ == nil {
		return nil, fmt.Errorf("RabbitMQ connection not initialized")
	}

	ch, err := RabbitMQ.Channel()
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		channel: ch,
		queue:   q.Name,
	}, nil
}

// Consume blocks, feeding each delivery to handler until the channel closes.
func (c *Consumer) Consume(handler func([]byte) error) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return err
	}

	log.Printf("Consumer is running on queue: %s", c.queue)

	for msg := range msgs {
		if err := handler(msg.Body); err != nil {
			log.Printf("Handle msg failed: %v", err)
			msg.Nack(false, true) // requeue the message
		} else {
			msg.Ack(false)
		}
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
