package forward

import (
	"context"
	"time"

	"go.uber.org/zap"

	contractmq "mailfilter/contracts/mq"
	"mailfilter/internal/filter"
	"mailfilter/pkg/logger"
	"mailfilter/pkg/mq"
)

const dedupHandler = "forward"

// Deduper suppresses repeated forwards of the same email by the same rule.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string) error
}

// Forwarder publishes forwardTo actions as email.forward.requested events.
// It implements filter.ForwardHook.
type Forwarder struct {
	publisher mq.EventPublisher
	deduper   Deduper
	logger    *zap.Logger
	timeout   time.Duration
}

var _ filter.ForwardHook = (*Forwarder)(nil)

// NewForwarder builds a forwarder. deduper may be nil, in which case every
// fired rule publishes.
func NewForwarder(publisher mq.EventPublisher, deduper Deduper, log *zap.Logger) *Forwarder {
	return &Forwarder{
		publisher: publisher,
		deduper:   deduper,
		logger:    logger.OrNop(log),
		timeout:   5 * time.Second,
	}
}

func (f *Forwarder) Forward(ctx context.Context, req filter.ForwardRequest) {
	log := logger.WithTrace(ctx, f.logger).With(
		zap.String("email_id", req.Email.ID),
		zap.String("rule_id", req.RuleID),
		zap.String("forward_to", req.To),
	)

	dedupID := req.RuleID + ":" + req.Email.ID
	if f.deduper != nil && !f.deduper.AcquireOnce(ctx, dedupHandler, dedupID) {
		log.Debug("Forward already requested")
		return
	}

	payload := contractmq.EmailForwardRequestedPayload{
		EmailID:     req.Email.ID,
		RuleID:      req.RuleID,
		RuleName:    req.Rule,
		To:          req.To,
		Sender:      req.Email.Sender,
		Subject:     req.Email.Subject,
		RequestedAt: time.Now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.publisher.Publish(pubCtx, contractmq.RoutingKeyForwardRequested, payload); err != nil {
		// 转发失败不影响过滤流程
		log.Error("Failed to publish forward request", zap.Error(err))
		f.release(ctx, dedupID, log)
		return
	}
	log.Info("Forward requested")
}

// release frees the dedup lock after a failed publish so the next filter pass
// retries the forward.
func (f *Forwarder) release(ctx context.Context, dedupID string, log *zap.Logger) {
	if f.deduper == nil {
		return
	}
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()
	if err := f.deduper.Release(relCtx, dedupHandler, dedupID); err != nil {
		log.Warn("Failed to release forward dedup lock", zap.Error(err))
	}
}
