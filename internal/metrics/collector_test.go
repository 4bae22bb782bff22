package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/visionboard/board"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("POST", "/api/v1/boards/generate", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("POST", "/api/v1/boards/generate", 201, 50*time.Millisecond, 512, 1024)
	collector.RecordHTTPRequest("GET", "/api/v1/boards/capabilities", 503, time.Millisecond, 0, 64)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/v1/boards/generate", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/api/v1/boards/capabilities", "5xx")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.httpRequestDuration))
}

func TestCollector_ObserveRun(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.ObserveRun(board.OutcomeAccepted, 1, 40*time.Second)
	collector.ObserveRun(board.OutcomeAccepted, 2, 80*time.Second)
	collector.ObserveRun(board.OutcomeExhausted, 3, 90*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.runsTotal.WithLabelValues(board.OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.runsTotal.WithLabelValues(board.OutcomeExhausted)))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.runAttempts))
}

func TestCollector_ObserveAttempt(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.ObserveAttempt(true, 8)
	collector.ObserveAttempt(false, 0)
	collector.ObserveAttempt(true, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.attemptsTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.attemptsTotal.WithLabelValues("false")))
}

func TestCollector_ObserveStateAndCapability(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.ObserveState(board.StateComposing)
	collector.ObserveState(board.StateComposing)
	collector.ObserveState(board.StateSkipEval)
	collector.ObserveCapabilityCall("image_generation", board.CallTimeout, 3*time.Minute)
	collector.ObserveCapabilityCall("evaluation", board.CallUnconfigured, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.stateEntries.WithLabelValues("COMPOSING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.stateEntries.WithLabelValues("SKIP_EVAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.capabilityCalls.WithLabelValues("image_generation", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.capabilityCalls.WithLabelValues("evaluation", "unconfigured")))
	// 未配置的调用不记录耗时
	assert.Equal(t, 1, testutil.CollectAndCount(collector.capabilityDuration))
}

func TestCollector_RunStarted(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	done1 := collector.RunStarted()
	done2 := collector.RunStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.runsInFlight))

	done1()
	done2()
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.runsInFlight))
}

func TestCollector_RecordDBConnections(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordDBConnections("sqlite", 4, 2)

	assert.Equal(t, 4.0, testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("sqlite")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("sqlite")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/health", 200, time.Millisecond, 0, 16)
			collector.ObserveAttempt(true, 7)
			collector.ObserveRun(board.OutcomeAccepted, 1, time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.runsTotal.WithLabelValues(board.OutcomeAccepted)))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(302))
	assert.Equal(t, "4xx", statusCode(429))
	assert.Equal(t, "5xx", statusCode(502))
	assert.Equal(t, "unknown", statusCode(0))
}
