package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mqcontracts "mailfilter/contracts/mq"
	"mailfilter/internal/enrich"
	"mailfilter/internal/model"
	"mailfilter/pkg/logger"
	"mailfilter/pkg/mq"
)

type EnrichmentService interface {
	Sentiment(ctx context.Context, email model.Email) (model.Sentiment, error)
	Summary(ctx context.Context, email model.Email) (string, error)
	SmartReplies(ctx context.Context, email model.Email, hint string) ([]string, error)
	EnrichAll(ctx context.Context, emails []model.Email, concurrency int) ([]model.Email, error)
}

type EnrichHandler struct {
	svc         EnrichmentService
	publisher   mq.EventPublisher
	concurrency int
	logger      *zap.Logger
}

// NewEnrichHandler builds the handler. publisher may be nil when no broker is
// configured; queueing then answers 503.
func NewEnrichHandler(svc EnrichmentService, publisher mq.EventPublisher, log *zap.Logger) *EnrichHandler {
	return &EnrichHandler{svc: svc, publisher: publisher, concurrency: 4, logger: logger.OrNop(log)}
}

// WithConcurrency bounds the provider calls made by one batch request.
func (h *EnrichHandler) WithConcurrency(n int) *EnrichHandler {
	if n > 0 {
		h.concurrency = n
	}
	return h
}

type enrichRequest struct {
	Email   model.Email `json:"email"`
	Context string      `json:"context"`
}

func (h *EnrichHandler) bind(c *gin.Context) (enrichRequest, bool) {
	var req enrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return req, false
	}
	return req, true
}

// Sentiment handles POST /api/enrich/sentiment.
func (h *EnrichHandler) Sentiment(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	sentiment, err := h.svc.Sentiment(c.Request.Context(), req.Email)
	if err != nil {
		h.logFailure(c, "sentiment", req.Email.ID, err)
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_id": req.Email.ID, "sentiment": sentiment})
}

// Summary handles POST /api/enrich/summary.
func (h *EnrichHandler) Summary(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(c.Request.Context(), req.Email)
	if err != nil {
		h.logFailure(c, "summary", req.Email.ID, err)
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_id": req.Email.ID, "summary": summary})
}

// Replies handles POST /api/enrich/replies.
func (h *EnrichHandler) Replies(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	replies, err := h.svc.SmartReplies(c.Request.Context(), req.Email, req.Context)
	if err != nil {
		h.logFailure(c, "replies", req.Email.ID, err)
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_id": req.Email.ID, "replies": replies})
}

// Batch handles POST /api/enrich/batch: fills sentiment and summary for every
// email synchronously. Emails whose enrichment failed come back unchanged and
// are listed under "failed".
func (h *EnrichHandler) Batch(c *gin.Context) {
	var req struct {
		Emails []model.Email `json:"emails"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	out, err := h.svc.EnrichAll(c.Request.Context(), req.Emails, h.concurrency)
	failed := []string{}
	if err != nil {
		var batchErr *enrich.BatchError
		if !errors.As(err, &batchErr) {
			h.logFailure(c, "batch", "", err)
			upstreamError(c, err)
			return
		}
		logger.WithTrace(c.Request.Context(), h.logger).Warn("Batch enrichment partially failed",
			zap.Int("emails", len(req.Emails)),
			zap.Error(err),
		)
		for _, i := range batchErr.Failed() {
			failed = append(failed, req.Emails[i].ID)
		}
	}
	c.JSON(http.StatusOK, gin.H{"emails": out, "failed": failed})
}

// Queue handles POST /api/enrich/queue: every email is handed to the worker
// through email.enrich.requested.
func (h *EnrichHandler) Queue(c *gin.Context) {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "enrichment queue unavailable"})
		return
	}
	var req struct {
		Emails []model.Email `json:"emails"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	queued := make([]string, 0, len(req.Emails))
	for _, e := range req.Emails {
		if e.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every email needs an id"})
			return
		}
		payload := mqcontracts.EmailEnrichRequestedPayload{Email: e, RequestedAt: time.Now().UTC()}
		if err := h.publisher.Publish(ctx, mqcontracts.RoutingKeyEnrichRequested, payload); err != nil {
			logger.WithTrace(ctx, h.logger).Error("Failed to queue enrichment",
				zap.String("email_id", e.ID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue enrichment", "queued": queued})
			return
		}
		queued = append(queued, e.ID)
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "queued": queued})
}

func (h *EnrichHandler) logFailure(c *gin.Context, kind, emailID string, err error) {
	logger.WithTrace(c.Request.Context(), h.logger).Error("Enrichment failed",
		zap.String("kind", kind),
		zap.String("email_id", emailID),
		zap.Error(err),
	)
}
