package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DLQExchangeName = "mailfilter.dlq"
)

// DeclareDLQExchange declares the dead letter exchange.
func DeclareDLQExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		DLQExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

// DLQName is the dead letter queue holding rejected messages of queueName.
func DLQName(queueName string) string {
	return queueName + ".dlq"
}

// deadLetterArgs routes messages rejected without requeue to the DLQ
// exchange under their original routing key.
func deadLetterArgs(routingKey string) amqp091.Table {
	return amqp091.Table{
		"x-dead-letter-exchange":    DLQExchangeName,
		"x-dead-letter-routing-key": routingKey,
	}
}

// DeclareDLQQueue declares the dead letter queue for queueName and binds it
// to routingKey on the DLQ exchange.
func DeclareDLQQueue(ch *amqp091.Channel, queueName, routingKey string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(
		DLQName(queueName),
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		DLQExchangeName,
		false,
		nil,
	)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind DLQ queue: %w", err)
	}

	return q, nil
}
