package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"mailfilter/pkg/circuitbreaker"
)

// statusCoder is implemented by provider errors that carry an HTTP-like
// status code.
type statusCoder interface {
	StatusCode() int
}

// IsRetryableError determines if an error is transient.
// Returns: (isRetryable, errorType)
//
// Only server-side failures (5xx) and network/transport failures are
// retryable; everything else is terminal.
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	// 熔断器打开 - 不可重试（快速失败）
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return false, "circuit_open"
	}

	// Context - 取消不可重试，超时可重试
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	// Provider status codes
	var sc statusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		if code >= 500 && code <= 599 {
			return true, "server_error"
		}
		return false, "client_error"
	}

	// JSON decode errors - 不可重试（数据格式错误）
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false, "decode_error"
	}

	// context.DeadlineExceeded also satisfies net.Error, check it first
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}

	// URL errors wrap the transport failure of an HTTP call
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	// Network errors - 可重试
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "network error") || strings.Contains(msg, "xhr error") {
		return true, "network_error"
	}

	// 默认：未知错误，保守处理 - 不重试
	return false, "unknown_error"
}

// ShouldRetry checks if an error should be retried based on retry count
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
