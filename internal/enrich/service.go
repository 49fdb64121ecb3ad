package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailfilter/internal/ai"
	"mailfilter/internal/model"
	"mailfilter/pkg/logger"
	"mailfilter/pkg/metrics"
	"mailfilter/pkg/retry"
)

const (
	kindSentiment = "sentiment"
	kindSummary   = "summary"
	kindReplies   = "replies"

	defaultConcurrency = 4
)

// Service computes sentiment, summaries and reply suggestions through the
// generative provider. Every provider call goes through the retry wrapper.
type Service struct {
	gen    ai.Generator
	retry  *retry.Wrapper
	cache  Cache
	logger *zap.Logger
}

type Option func(*Service)

func WithRetry(w *retry.Wrapper) Option {
	return func(s *Service) { s.retry = w }
}

func WithCache(c Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logger.OrNop(l) }
}

func NewService(gen ai.Generator, opts ...Option) *Service {
	s := &Service{
		gen:    gen,
		cache:  nopCache{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry == nil {
		s.retry = retry.New(retry.DefaultPolicy(), retry.WithLogger(s.logger))
	}
	return s
}

// Available reports whether provider calls will be made at all.
func (s *Service) Available() bool {
	return s.gen != nil && s.gen.HasCredential()
}

func (s *Service) generate(ctx context.Context, kind, prompt, mimeType string) (string, error) {
	return retry.Invoke(ctx, s.retry.Named(kind), func(ctx context.Context) (string, error) {
		return s.gen.Generate(ctx, prompt, mimeType)
	})
}

func (s *Service) cached(ctx context.Context, kind, emailID string) (string, bool) {
	if emailID == "" {
		return "", false
	}
	v, ok, err := s.cache.Get(ctx, kind, emailID)
	if err != nil {
		s.logger.Warn("Enrichment cache read failed",
			zap.String("kind", kind),
			zap.String("email_id", emailID),
			zap.Error(err),
		)
		return "", false
	}
	return v, ok
}

func (s *Service) store(ctx context.Context, kind, emailID, value string) {
	if emailID == "" {
		return
	}
	if err := s.cache.Set(ctx, kind, emailID, value); err != nil {
		s.logger.Warn("Enrichment cache write failed",
			zap.String("kind", kind),
			zap.String("email_id", emailID),
			zap.Error(err),
		)
	}
}

// Sentiment classifies the email body. Without a credential it returns
// Unknown and makes no call.
func (s *Service) Sentiment(ctx context.Context, email model.Email) (model.Sentiment, error) {
	if !s.Available() {
		metrics.IncrementEnrichment(kindSentiment, "fallback")
		return model.SentimentUnknown, nil
	}
	if v, ok := s.cached(ctx, kindSentiment, email.ID); ok {
		metrics.IncrementEnrichment(kindSentiment, "cache")
		return parseSentiment(v), nil
	}

	text, err := s.generate(ctx, kindSentiment, sentimentPrompt(plainBody(email)), ai.MimeText)
	if err != nil {
		return "", fmt.Errorf("sentiment for %s: %w", email.ID, err)
	}
	metrics.IncrementEnrichment(kindSentiment, "provider")

	sentiment := parseSentiment(text)
	if sentiment == model.SentimentUnknown {
		logger.WithTrace(ctx, s.logger).Warn("Unexpected sentiment response",
			zap.String("email_id", email.ID),
			zap.String("response", text),
		)
	}
	s.store(ctx, kindSentiment, email.ID, string(sentiment))
	return sentiment, nil
}

// Summary returns a one or two sentence summary of the email body.
func (s *Service) Summary(ctx context.Context, email model.Email) (string, error) {
	if !s.Available() {
		metrics.IncrementEnrichment(kindSummary, "fallback")
		return SummaryUnavailable, nil
	}
	if v, ok := s.cached(ctx, kindSummary, email.ID); ok {
		metrics.IncrementEnrichment(kindSummary, "cache")
		return v, nil
	}

	text, err := s.generate(ctx, kindSummary, summaryPrompt(plainBody(email)), ai.MimeText)
	if err != nil {
		return "", fmt.Errorf("summary for %s: %w", email.ID, err)
	}
	metrics.IncrementEnrichment(kindSummary, "provider")

	summary := strings.TrimSpace(text)
	if summary != "" {
		s.store(ctx, kindSummary, email.ID, summary)
	}
	return summary, nil
}

// SmartReplies suggests up to three short replies. hint is optional extra
// context such as the subject line.
func (s *Service) SmartReplies(ctx context.Context, email model.Email, hint string) ([]string, error) {
	if !s.Available() {
		metrics.IncrementEnrichment(kindReplies, "fallback")
		return []string{RepliesUnavailable}, nil
	}

	text, err := s.generate(ctx, kindReplies, repliesPrompt(plainBody(email), hint), ai.MimeJSON)
	if err != nil {
		return nil, fmt.Errorf("replies for %s: %w", email.ID, err)
	}
	metrics.IncrementEnrichment(kindReplies, "provider")
	return parseReplies(text), nil
}

// Enrich fills sentiment and summary when they are absent. Existing values
// are never overwritten. Without a credential the email comes back
// unchanged. On error the returned email carries whatever was filled before
// the failure.
func (s *Service) Enrich(ctx context.Context, email model.Email) (model.Email, error) {
	out := email.Clone()
	if !s.Available() {
		return out, nil
	}

	if out.Sentiment == "" {
		sentiment, err := s.Sentiment(ctx, out)
		if err != nil {
			return out, err
		}
		out.Sentiment = sentiment
	}
	if out.Summary == "" {
		summary, err := s.Summary(ctx, out)
		if err != nil {
			return out, err
		}
		out.Summary = summary
	}
	return out, nil
}

// BatchError reports the emails of an EnrichAll call that could not be
// enriched. Errs is indexed like the input; successful emails have a nil entry.
type BatchError struct {
	Errs []error
}

func (e *BatchError) Error() string {
	return errors.Join(e.Errs...).Error()
}

func (e *BatchError) Unwrap() []error {
	var out []error
	for _, err := range e.Errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

// Failed returns the input indexes whose enrichment failed.
func (e *BatchError) Failed() []int {
	var idx []int
	for i, err := range e.Errs {
		if err != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// EnrichAll enriches emails concurrently, at most concurrency at a time.
// The result keeps input order. Failed emails are returned as they came in
// and reported through a *BatchError.
func (s *Service) EnrichAll(ctx context.Context, emails []model.Email, concurrency int) ([]model.Email, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	out := make([]model.Email, len(emails))
	errs := make([]error, len(emails))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range emails {
		g.Go(func() error {
			enriched, err := s.Enrich(ctx, emails[i])
			if err != nil {
				out[i] = emails[i].Clone()
				errs[i] = err
				return nil
			}
			out[i] = enriched
			return nil
		})
	}
	_ = g.Wait()

	batchErr := &BatchError{Errs: errs}
	failed := batchErr.Failed()
	if len(failed) == 0 {
		return out, nil
	}
	logger.WithTrace(ctx, s.logger).Warn("Some emails could not be enriched",
		zap.Int("total", len(emails)),
		zap.Int("failed", len(failed)),
		zap.Error(batchErr),
	)
	return out, batchErr
}
