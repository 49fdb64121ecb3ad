package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 一次过滤 pass 的耗时（秒）
	FilterPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filter_pass_duration_seconds",
			Help:    "Duration of one filtering pass over an email collection",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
		},
	)

	// 规则命中计数
	RuleFiredCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_rule_fired_total",
			Help: "Total number of times a rule fired on an email",
		},
		[]string{"action"},
	)

	// AI 调用延迟（毫秒）
	AICallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_call_latency_ms",
			Help:    "Generative AI provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10), // 50ms to ~25s
		},
		[]string{"endpoint", "status"},
	)

	// 重试包装器的尝试次数
	CallAttemptCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilient_call_attempts_total",
			Help: "Attempts made by the resilient call wrapper",
		},
		[]string{"operation", "outcome"}, // outcome: success, retry, failed
	)

	// 富化结果计数
	EnrichmentCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_total",
			Help: "Enrichment results by kind and source",
		},
		[]string{"kind", "source"}, // source: provider, cache, sentinel, error
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordFilterPass(duration time.Duration) {
	FilterPassDuration.Observe(duration.Seconds())
}

func IncrementRuleFired(action string) {
	RuleFiredCount.WithLabelValues(action).Inc()
}

func RecordAICallLatency(endpoint, status string, duration time.Duration) {
	AICallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

func IncrementCallAttempt(operation, outcome string) {
	CallAttemptCount.WithLabelValues(operation, outcome).Inc()
}

func IncrementEnrichment(kind, source string) {
	EnrichmentCount.WithLabelValues(kind, source).Inc()
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
