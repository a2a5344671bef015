package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/capture"
	"github.com/BaSui01/voiceweb/toolkit"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

var (
	_ capture.Recorder = (*Collector)(nil)
	_ toolkit.Recorder = (*Collector)(nil)
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordHTTPRequest("GET", "/session", 200, 100*time.Millisecond, 2048)
	c.RecordHTTPRequest("GET", "/session", 204, 50*time.Millisecond, 0)
	c.RecordHTTPRequest("GET", "/session", 502, 10*time.Millisecond, 128)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/session", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/session", "5xx")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpRequestDuration))
}

func TestCollector_CaptureMetrics(t *testing.T) {
	c := NewCollector(nextTestNamespace(), nil)

	c.RecordCapture("fast", "success", 200*time.Millisecond)
	c.RecordCapture("legacy", "failure", 2*time.Second)
	c.RecordCapture("fast", "success", 100*time.Millisecond)
	c.RecordFallback("PermissionDenied")
	c.RecordEncode(0.6, 150_000, 1)
	c.RecordEncode(0.4, 190_000, 3)
	c.RecordChannelSend("sent")
	c.RecordChannelSend("unavailable")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.capturesTotal.WithLabelValues("fast", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.capturesTotal.WithLabelValues("legacy", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.captureFallbacks.WithLabelValues("PermissionDenied")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.channelSendsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(c.encodeQuality))
}

func TestCollector_ToolMetrics(t *testing.T) {
	c := NewCollector(nextTestNamespace(), nil)

	c.RecordToolCall("executeJS", "ok", 600*time.Millisecond)
	c.RecordToolCall("executeJS", "error", time.Second)
	c.RecordToolCall("getPageHTML", "ok", 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.toolCallsTotal.WithLabelValues("executeJS", "ok")))
	assert.Equal(t, 3, testutil.CollectAndCount(c.toolCallsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(c.toolCallDuration))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"}, {301, "3xx"}, {404, "4xx"}, {502, "5xx"}, {0, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCode(tt.code))
	}
}
