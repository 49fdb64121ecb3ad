package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailfilter/pkg/trace"
)

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
	calls   int
}

func (a *ackRecord) Ack(uint64, bool) error {
	a.calls++
	a.acked = true
	return nil
}

func (a *ackRecord) Nack(_ uint64, _ bool, requeue bool) error {
	a.calls++
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *ackRecord) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

func newTestConsumer(h MessageHandler) *Consumer {
	c := &Consumer{
		queue:      amqp091.Queue{Name: "test.queue"},
		routingKey: "test.key",
	}
	c.logger = zap.NewNop()
	c.SetHandler(h)
	return c
}

func deliver(c *Consumer, headers amqp091.Table) *ackRecord {
	ack := &ackRecord{}
	c.process(context.Background(), amqp091.Delivery{
		Acknowledger: ack,
		Headers:      headers,
		Body:         []byte(`{"ok":true}`),
	})
	return ack
}

func TestProcessAcksOnSuccess(t *testing.T) {
	var got json.RawMessage
	var gotTrace string
	c := newTestConsumer(func(ctx context.Context, data json.RawMessage) error {
		got = data
		gotTrace = trace.FromContext(ctx)
		return nil
	})

	ack := deliver(c, amqp091.Table{trace.HeaderName(): "trace-1"})
	assert.True(t, ack.acked)
	assert.Equal(t, 1, ack.calls)
	assert.JSONEq(t, `{"ok":true}`, string(got))
	assert.Equal(t, "trace-1", gotTrace)
}

func TestProcessGeneratesTraceID(t *testing.T) {
	var gotTrace string
	c := newTestConsumer(func(ctx context.Context, _ json.RawMessage) error {
		gotTrace = trace.FromContext(ctx)
		return nil
	})
	deliver(c, nil)
	assert.Len(t, gotTrace, 32)
}

func TestProcessRequeuesRetryableErrors(t *testing.T) {
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		return errors.New("provider down")
	})
	ack := deliver(c, nil)
	require.True(t, ack.nacked)
	assert.True(t, ack.requeue)
	assert.Equal(t, 1, ack.calls)
}

func TestProcessDeadLettersPermanentErrors(t *testing.T) {
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		return Permanent(errors.New("bad payload"))
	})
	ack := deliver(c, nil)
	require.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestProcessDeadLettersPanics(t *testing.T) {
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		panic("boom")
	})
	ack := deliver(c, nil)
	require.True(t, ack.nacked)
	assert.False(t, ack.requeue)
	assert.Equal(t, 1, ack.calls)
}

func TestPermanent(t *testing.T) {
	base := errors.New("base")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.True(t, IsPermanent(errors.Join(errors.New("x"), err)))
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}

func TestDeadLetterArgs(t *testing.T) {
	args := deadLetterArgs("email.enrich.requested")
	assert.Equal(t, DLQExchangeName, args["x-dead-letter-exchange"])
	assert.Equal(t, "email.enrich.requested", args["x-dead-letter-routing-key"])
	assert.Equal(t, "enrich.dlq", DLQName("enrich"))
}
