package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "mailfilter/contracts/mq"
	"mailfilter/internal/model"
	"mailfilter/pkg/logger"
	"mailfilter/pkg/mq"
	"mailfilter/pkg/util"
)

const (
	handlerName = "enrich"

	// DefaultMaxRedeliveries 最大重新投递次数
	DefaultMaxRedeliveries = 5
)

type Enricher interface {
	Enrich(ctx context.Context, email model.Email) (model.Email, error)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type EnrichRequestedHandler struct {
	enricher        Enricher
	publisher       mq.EventPublisher
	retryCounter    RetryCounter
	maxRedeliveries int64
	logger          *zap.Logger
}

func NewEnrichRequestedHandler(
	enricher Enricher,
	publisher mq.EventPublisher,
	retryCounter RetryCounter,
	maxRedeliveries int64,
	log *zap.Logger,
) *EnrichRequestedHandler {
	if maxRedeliveries <= 0 {
		maxRedeliveries = DefaultMaxRedeliveries
	}
	return &EnrichRequestedHandler{
		enricher:        enricher,
		publisher:       publisher,
		retryCounter:    retryCounter,
		maxRedeliveries: maxRedeliveries,
		logger:          logger.OrNop(log),
	}
}

// Handle processes an email.enrich.requested message and publishes
// email.enriched. A malformed payload or a fatal provider error is returned
// as a permanent error so the consumer dead-letters it; transient failures
// are returned as-is for redelivery until the redelivery budget runs out.
func (h *EnrichRequestedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.EmailEnrichRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// JSON decode 错误 - 不可重试，发送到 DLQ
		log.Error("Failed to unmarshal enrich requested payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return mq.Permanent(fmt.Errorf("json_unmarshal_error: %w", err))
	}
	if p.Email.ID == "" {
		return mq.Permanent(errors.New("enrich requested without email id"))
	}

	log = log.With(zap.String("email_id", p.Email.ID))
	retryKey := util.FormatRetryKey(handlerName, p.Email.ID)

	enriched, err := h.enricher.Enrich(ctx, p.Email)
	if err != nil {
		isRetryable, errType := util.IsRetryableError(err)
		log.Error("Failed to enrich email",
			zap.String("error_type", errType),
			zap.Bool("retryable", isRetryable),
			zap.Error(err),
		)
		if !isRetryable {
			h.resetRetries(ctx, retryKey)
			return mq.Permanent(err)
		}

		count := h.nextRetry(ctx, retryKey)
		if !util.ShouldRetry(count, h.maxRedeliveries, isRetryable) {
			// 超过最大重试次数，ack 掉
			log.Warn("Max redeliveries exceeded, dropping enrich request",
				zap.Int64("retry_count", count),
				zap.Int64("max_retries", h.maxRedeliveries),
			)
			h.resetRetries(ctx, retryKey)
			return nil
		}
		return err
	}

	out := mqcontracts.EmailEnrichedPayload{Email: enriched, EnrichedAt: time.Now().UTC()}
	if err := h.publisher.Publish(ctx, mqcontracts.RoutingKeyEnriched, out); err != nil {
		log.Error("Failed to publish enriched email", zap.Error(err))
		return err
	}

	h.resetRetries(ctx, retryKey)
	log.Info("Email enriched",
		zap.String("sentiment", string(enriched.Sentiment)),
		zap.Bool("has_summary", enriched.Summary != ""),
	)
	return nil
}

func (h *EnrichRequestedHandler) nextRetry(ctx context.Context, key string) int64 {
	if h.retryCounter == nil {
		return 1
	}
	count, err := h.retryCounter.IncrementAndGet(ctx, key)
	if err != nil {
		// Redis 错误不影响处理
		h.logger.Warn("Failed to get retry count, continuing anyway",
			zap.String("retry_key", key),
			zap.Error(err),
		)
		return 1
	}
	return count
}

func (h *EnrichRequestedHandler) resetRetries(ctx context.Context, key string) {
	if h.retryCounter == nil {
		return
	}
	if err := h.retryCounter.Reset(ctx, key); err != nil {
		h.logger.Warn("Failed to reset retry count", zap.String("retry_key", key), zap.Error(err))
	}
}
