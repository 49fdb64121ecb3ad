package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"mailfilter/pkg/logger"
	"mailfilter/pkg/metrics"
	"mailfilter/pkg/trace"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// PermanentError marks a handler failure that redelivery cannot fix. The
// consumer dead-letters such messages instead of requeueing them.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the consumer dead-letters the message.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger
}

// NewConsumer creates a consumer for a specific routing key. Its queue
// dead-letters rejected messages into <queue>.dlq.
func NewConsumer(url, queueName, routingKey string, log *zap.Logger) (*Consumer, error) {
	log = logger.OrNop(log)

	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := DeclareExchange(ch); err != nil {
		return fail(fmt.Errorf("failed to declare exchange: %w", err))
	}
	if err := DeclareDLQExchange(ch); err != nil {
		return fail(fmt.Errorf("failed to declare DLQ exchange: %w", err))
	}
	if _, err := DeclareDLQQueue(ch, queueName, routingKey); err != nil {
		return fail(err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		deadLetterArgs(routingKey),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to declare queue: %w", err))
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fail(fmt.Errorf("failed to bind queue: %w", err))
	}

	log.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
		zap.String("dlq", DLQName(queueName)),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     log,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks until ctx is done or the delivery channel closes.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue.Name,
		"",
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.queue.Name)
			}
			c.process(ctx, msg)
		}
	}
}

// process guarantees every delivery is acked or nacked exactly once.
func (c *Consumer) process(parent context.Context, msg amqp091.Delivery) {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
	}()

	traceID := trace.GenerateTraceID()
	if v, ok := msg.Headers[trace.HeaderName()].(string); ok && v != "" {
		traceID = v
	}
	ctx := trace.WithContext(parent, traceID)
	log := c.logger.With(
		zap.String("trace_id", traceID),
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	log.Debug("Received message", zap.Int("message_size", len(msg.Body)))

	// Panic 恢复：确保即使 handler panic 也能正确处理消息
	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic recovered", zap.Any("panic", r))
			// Panic → 进入死信队列，避免毒消息无限重试
			if err := msg.Nack(false, false); err != nil {
				log.Error("Failed to nack message after panic", zap.Error(err))
			}
		}
	}()

	if err := c.handler(ctx, msg.Body); err != nil {
		requeue := !IsPermanent(err)
		log.Error("Handler error",
			zap.Bool("requeue", requeue),
			zap.Error(err),
		)
		// 可重试 → 重新入队；永久失败 → 死信队列
		if err := msg.Nack(false, requeue); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack message", zap.Error(err))
		return
	}
	log.Debug("Message processed successfully")
}
