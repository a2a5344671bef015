// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，同时实现 capture.Recorder 与 toolkit.Recorder
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 捕获指标
	capturesTotal     *prometheus.CounterVec
	captureDuration   *prometheus.HistogramVec
	captureFallbacks  *prometheus.CounterVec
	encodeQuality     prometheus.Histogram
	encodeBytes       prometheus.Histogram
	encodeIterations  prometheus.Histogram
	channelSendsTotal *prometheus.CounterVec

	// 工具指标
	toolCallsTotal   *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 捕获指标
	c.capturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Total number of screenshot captures by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	c.captureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Screenshot capture duration in seconds, including consent prompts",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"path"},
	)

	c.captureFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_fallbacks_total",
			Help:      "Total number of fast path failures that fell back to one-shot capture",
		},
		[]string{"reason"},
	)

	c.encodeQuality = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_quality",
			Help:      "JPEG quality of accepted encodes",
			Buckets:   []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	c.encodeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_size_bytes",
			Help:      "Measured size of accepted encodes",
			Buckets:   prometheus.ExponentialBuckets(10_000, 2, 8),
		},
	)

	c.encodeIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_iterations",
			Help:      "Number of encode attempts per capture",
			Buckets:   []float64{1, 2, 3, 4, 5, 6},
		},
	)

	c.channelSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_sends_total",
			Help:      "Total number of screenshot deliveries by outcome",
		},
		[]string{"outcome"},
	)

	// 工具指标
	c.toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	c.toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Tool call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 📸 捕获指标记录
// =============================================================================

// RecordCapture 记录一次捕获
func (c *Collector) RecordCapture(path, outcome string, d time.Duration) {
	c.capturesTotal.WithLabelValues(path, outcome).Inc()
	c.captureDuration.WithLabelValues(path).Observe(d.Seconds())
}

// RecordFallback 记录快速路径回退
func (c *Collector) RecordFallback(reason string) {
	c.captureFallbacks.WithLabelValues(reason).Inc()
}

// RecordEncode 记录编码结果
func (c *Collector) RecordEncode(quality float64, bytes, iterations int) {
	c.encodeQuality.Observe(quality)
	c.encodeBytes.Observe(float64(bytes))
	c.encodeIterations.Observe(float64(iterations))
}

// RecordChannelSend 记录截图投递结果
func (c *Collector) RecordChannelSend(outcome string) {
	c.channelSendsTotal.WithLabelValues(outcome).Inc()
}

// =============================================================================
// 🔧 工具指标记录
// =============================================================================

// RecordToolCall 记录工具调用
func (c *Collector) RecordToolCall(name, outcome string, d time.Duration) {
	c.toolCallsTotal.WithLabelValues(name, outcome).Inc()
	c.toolCallDuration.WithLabelValues(name).Observe(d.Seconds())
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
