package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Snapshot 指标快照
type Snapshot struct {
	ConnsActive   int64
	StreamsActive int64
	RelaysActive  int64
	BytesUp       int64
	BytesDown     int64
}

// Snapshot 读取当前指标值，nil 时返回零值
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		ConnsActive:   int64(read(m.connsActive)),
		StreamsActive: int64(read(m.streamsActive)),
		RelaysActive:  int64(read(m.relaysActive)),
		BytesUp:       int64(read(m.relayBytes.WithLabelValues("up"))),
		BytesDown:     int64(read(m.relayBytes.WithLabelValues("down"))),
	}
}

// StreamCount 返回某状态的累计流数
func (m *Metrics) StreamCount(status string) int64 {
	if m == nil {
		return 0
	}
	return int64(read(m.streamsTotal.WithLabelValues(status)))
}

// ConnCount 返回某结果的累计连接数
func (m *Metrics) ConnCount(result string) int64 {
	if m == nil {
		return 0
	}
	return int64(read(m.connsTotal.WithLabelValues(result)))
}

func read(c prometheus.Metric) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	switch {
	case pb.Gauge != nil:
		return pb.Gauge.GetValue()
	case pb.Counter != nil:
		return pb.Counter.GetValue()
	default:
		return 0
	}
}
