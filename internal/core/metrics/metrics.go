package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kadugu"

// 连接结果标签
const (
	ConnAccepted = "accepted"
	ConnRejected = "rejected"
	ConnMismatch = "mismatch"
	ConnFailed   = "failed"
)

// 流状态标签
const (
	StreamOK            = "ok"
	StreamDialFailed    = "dial_failed"
	StreamBadDescriptor = "bad_descriptor"
	StreamResourceLimit = "resource_limit"
	StreamUnreachable   = "unreachable"
	StreamError         = "error"
)

// Metrics 隧道指标集合
type Metrics struct {
	registry *prometheus.Registry

	connsActive   prometheus.Gauge
	connsTotal    *prometheus.CounterVec
	streamsActive prometheus.Gauge
	streamsTotal  *prometheus.CounterVec
	relaysActive  prometheus.Gauge
	relayBytes    *prometheus.CounterVec
	dialSeconds   prometheus.Histogram
}

// New 创建并注册全部指标
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of live peer connections",
		}),
		connsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Peer connections by outcome",
		}, []string{"result"}),
		streamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Number of live proxy streams",
		}),
		streamsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_total",
			Help:      "Proxy streams by final status",
		}, []string{"status"}),
		relaysActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relays_active",
			Help:      "Number of running relay pairs",
		}),
		relayBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_bytes_total",
			Help:      "Bytes copied by the relay engine",
		}, []string{"direction"}),
		dialSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "target_dial_seconds",
			Help:      "Time to connect to proxy targets",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.connsActive, m.connsTotal,
		m.streamsActive, m.streamsTotal,
		m.relaysActive, m.relayBytes,
		m.dialSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 返回指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ============================================================================
//                              连接
// ============================================================================

// ConnOpened 记录连接建立
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connsActive.Inc()
	m.connsTotal.WithLabelValues(ConnAccepted).Inc()
}

// ConnClosed 记录连接关闭
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connsActive.Dec()
}

// ConnRefused 记录未进入服务状态的连接
func (m *Metrics) ConnRefused(result string) {
	if m == nil {
		return
	}
	m.connsTotal.WithLabelValues(result).Inc()
}

// ============================================================================
//                              流
// ============================================================================

// StreamOpened 记录流开始
func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.streamsActive.Inc()
}

// StreamClosed 记录流结束及其状态
func (m *Metrics) StreamClosed(status string) {
	if m == nil {
		return
	}
	m.streamsActive.Dec()
	m.streamsTotal.WithLabelValues(status).Inc()
}

// ObserveDial 记录拨号目标耗时
func (m *Metrics) ObserveDial(d time.Duration) {
	if m == nil {
		return
	}
	m.dialSeconds.Observe(d.Seconds())
}

// ============================================================================
//                              中继
// ============================================================================

// RelayStarted 记录中继开始
func (m *Metrics) RelayStarted() {
	if m == nil {
		return
	}
	m.relaysActive.Inc()
}

// RelayFinished 记录中继结束与字节数
//
// up 为发起侧到目标侧，down 为反方向。
func (m *Metrics) RelayFinished(up, down int64) {
	if m == nil {
		return
	}
	m.relaysActive.Dec()
	m.relayBytes.WithLabelValues("up").Add(float64(up))
	m.relayBytes.WithLabelValues("down").Add(float64(down))
}
