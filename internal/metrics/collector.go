// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	llmmetrics "github.com/BaSui01/graphrag/metrics"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，实现 metrics.Publisher
type Collector struct {
	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmComputeDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec
	llmRetriesTotal    *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 限流指标
	rateLimitWait *prometheus.HistogramVec

	// 会话指标
	sessionsTotal   prometheus.Counter
	sessionDuration prometheus.Histogram

	logger *zap.Logger
}

var _ llmmetrics.Publisher = (*Collector)(nil)

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// LLM 指标
	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"model", "status"},
	)

	c.llmComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_compute_duration_seconds",
			Help:      "LLM compute duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	c.llmTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"model", "type"}, // type: prompt, completion
	)

	c.llmRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_retries_total",
			Help:      "Total number of retry attempts",
		},
		[]string{"model"},
	)

	// 缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"model"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"model"},
	)

	// 限流指标
	c.rateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting for rate limit admission",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"model"},
	)

	// 会话指标
	c.sessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mux_sessions_total",
			Help:      "Total number of multiplexer sessions",
		},
	)

	c.sessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mux_session_duration_seconds",
			Help:      "Multiplexer session duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🤖 LLM 指标记录
// =============================================================================

// PublishCall 记录一次 LLM 调用结果
func (c *Collector) PublishCall(model string, acc *llmmetrics.Accumulator, success bool) {
	c.llmRequestsTotal.WithLabelValues(model, callStatus(success)).Inc()
	if acc == nil {
		return
	}
	c.llmComputeDuration.WithLabelValues(model).Observe(acc.ComputeDuration.Seconds())
	c.llmTokensUsed.WithLabelValues(model, "prompt").Add(float64(acc.PromptTokens))
	c.llmTokensUsed.WithLabelValues(model, "completion").Add(float64(acc.CompletionTokens))
	if acc.Retries > 0 {
		c.llmRetriesTotal.WithLabelValues(model).Add(float64(acc.Retries))
	}
	if acc.CacheHit {
		c.cacheHits.WithLabelValues(model).Inc()
	} else {
		c.cacheMisses.WithLabelValues(model).Inc()
	}
	if acc.RateLimitWait > 0 {
		c.rateLimitWait.WithLabelValues(model).Observe(acc.RateLimitWait.Seconds())
	}
}

// PublishSession 记录会话时长
func (c *Collector) PublishSession(d time.Duration) {
	c.sessionsTotal.Inc()
	c.sessionDuration.Observe(d.Seconds())
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// callStatus 将调用结果转换为状态标签
func callStatus(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
