package metrics

import (
	"strconv"
	"time"

	"github.com/BaSui01/visionboard/board"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 运行指标
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runAttempts   prometheus.Histogram
	runsInFlight  prometheus.Gauge
	attemptsTotal *prometheus.CounterVec
	scores        prometheus.Histogram
	stateEntries  *prometheus.CounterVec

	// 能力调用指标
	capabilityCalls    *prometheus.CounterVec
	capabilityDuration *prometheus.HistogramVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

var _ board.Observer = (*Collector)(nil)

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
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 180, 600},
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
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

	// 运行指标
	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "runs_total",
			Help:      "Total number of generation runs by outcome",
		},
		[]string{"outcome"},
	)

	c.runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "run_duration_seconds",
			Help:      "Generation run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"outcome"},
	)

	c.runAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "run_attempts",
			Help:      "Number of attempts used per run",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		},
	)

	c.runsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "runs_in_flight",
			Help:      "Number of generation runs currently streaming",
		},
	)

	c.attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "attempts_total",
			Help:      "Total number of attempts by whether an image was produced",
		},
		[]string{"image_produced"},
	)

	c.scores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "evaluation_score",
			Help:      "Distribution of evaluation scores",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		},
	)

	c.stateEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "state_entries_total",
			Help:      "Total number of orchestrator state entries",
		},
		[]string{"state"},
	)

	// 能力调用指标
	c.capabilityCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capability",
			Name:      "calls_total",
			Help:      "Total number of external capability calls",
		},
		[]string{"capability", "outcome"},
	)

	c.capabilityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "capability",
			Name:      "call_duration_seconds",
			Help:      "External capability call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		},
		[]string{"capability"},
	)

	// 数据库指标
	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🖼️ board.Observer
// =============================================================================

// ObserveState 记录状态机进入某状态
func (c *Collector) ObserveState(state board.State) {
	c.stateEntries.WithLabelValues(string(state)).Inc()
}

// ObserveAttempt 记录一次尝试；只有产出图像的尝试才计入得分分布
func (c *Collector) ObserveAttempt(imageProduced bool, score int) {
	c.attemptsTotal.WithLabelValues(strconv.FormatBool(imageProduced)).Inc()
	if imageProduced {
		c.scores.Observe(float64(score))
	}
}

// ObserveRun 记录一次运行结束
func (c *Collector) ObserveRun(outcome string, attempts int, duration time.Duration) {
	c.runsTotal.WithLabelValues(outcome).Inc()
	c.runDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	c.runAttempts.Observe(float64(attempts))
}

// ObserveCapabilityCall 记录一次外部能力调用
func (c *Collector) ObserveCapabilityCall(capability, outcome string, duration time.Duration) {
	c.capabilityCalls.WithLabelValues(capability, outcome).Inc()
	if outcome != board.CallUnconfigured {
		c.capabilityDuration.WithLabelValues(capability).Observe(duration.Seconds())
	}
}

// RunStarted 进行中运行数 +1，返回的函数在运行结束时调用
func (c *Collector) RunStarted() (done func()) {
	c.runsInFlight.Inc()
	return c.runsInFlight.Dec
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
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
