package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailfilter/pkg/circuitbreaker"
	"mailfilter/pkg/config"
	"mailfilter/pkg/logger"
	"mailfilter/pkg/metrics"
	"mailfilter/pkg/trace"
	"mailfilter/pkg/util"
)

const (
	generatePath = "/v1/generate"

	MimeText = "text/plain"
	MimeJSON = "application/json"

	maxResponseBytes = 1 << 20
)

// placeholderKeys are sample-config values that mean "not configured".
var placeholderKeys = []string{"YOUR_API_KEY", "YOUR_GEMINI_API_KEY"}

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ai provider returned status %d", e.Code)
	}
	return fmt.Sprintf("ai provider returned status %d: %s", e.Code, e.Message)
}

// StatusCode lets util.IsRetryableError classify the failure.
func (e *ProviderError) StatusCode() int {
	return e.Code
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, mimeType string) (string, error)
	HasCredential() bool
}

type generateRequest struct {
	Model            string `json:"model"`
	Prompt           string `json:"prompt"`
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the generative provider over HTTP. One attempt per
// Generate call; retries are the caller's business.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker // 熔断器
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(cl *Client) { cl.cb = cb }
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = logger.OrNop(l) }
}

func NewClient(cfg config.AIConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cb == nil {
		c.cb = NewBreaker(config.BreakerConfig{}, c.logger)
	}
	return c
}

// NewBreaker builds the provider breaker. Only transient failures count
// against it; a 4xx says nothing about provider health.
func NewBreaker(cfg config.BreakerConfig, log *zap.Logger) *circuitbreaker.CircuitBreaker {
	log = logger.OrNop(log)
	return circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		Name:                "ai-provider",
		FailureThreshold:    cfg.FailureThreshold,
		SuccessThreshold:    cfg.SuccessThreshold,
		Timeout:             cfg.Timeout,
		HalfOpenMaxRequests: cfg.HalfOpenMaxRequests,
		IsFailure: func(err error) bool {
			retryable, _ := util.IsRetryableError(err)
			return retryable
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// HasCredential reports whether a usable API key is configured.
func (c *Client) HasCredential() bool {
	if c.apiKey == "" {
		return false
	}
	return !slices.Contains(placeholderKeys, c.apiKey)
}

// Generate sends one prompt and returns the provider's text.
func (c *Client) Generate(ctx context.Context, prompt, mimeType string) (string, error) {
	var text string
	err := c.cb.Execute(func() error {
		var callErr error
		text, callErr = c.generate(ctx, prompt, mimeType)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, prompt, mimeType string) (string, error) {
	start := time.Now()

	b, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, ResponseMimeType: mimeType})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	// 传播 trace_id
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName(), traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAICallLatency(generatePath, "error", time.Since(start))
		return "", fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordAICallLatency(generatePath, "error", time.Since(start))
		return "", fmt.Errorf("network error: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := "4xx"
		if resp.StatusCode >= 500 {
			status = "5xx"
		}
		metrics.RecordAICallLatency(generatePath, status, time.Since(start))
		return "", &ProviderError{Code: resp.StatusCode, Message: errorMessage(body)}
	}

	metrics.RecordAICallLatency(generatePath, "success", time.Since(start))

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return out.Text, nil
}

func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
