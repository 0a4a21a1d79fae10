package realtime

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the realtime layer's prometheus instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Connections   prometheus.Gauge
	OnlineUsers   prometheus.Gauge
	FramesIn      *prometheus.CounterVec
	FramesOut     *prometheus.CounterVec
	EmitFailures  *prometheus.CounterVec
	InvalidEvents *prometheus.CounterVec
	Deliveries    *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide realtime metrics.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			Connections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "parley_realtime_connections",
				Help: "Current number of open realtime connections",
			}),
			OnlineUsers: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "parley_realtime_online_users",
				Help: "Current number of users with a registered connection",
			}),
			FramesIn: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "parley_realtime_frames_received_total",
				Help: "Inbound frames by event",
			}, []string{"event"}),
			FramesOut: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "parley_realtime_frames_sent_total",
				Help: "Outbound frames by event",
			}, []string{"event"}),
			EmitFailures: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "parley_realtime_emit_failures_total",
				Help: "Outbound frames that could not be queued",
			}, []string{"event"}),
			InvalidEvents: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "parley_realtime_invalid_events_total",
				Help: "Inbound events dropped as invalid",
			}, []string{"event"}),
			Deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "parley_realtime_message_deliveries_total",
				Help: "Message fanout results per recipient",
			}, []string{"result"}),
		}
	})
	return metricsInstance
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.Connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.Connections.Dec()
}

func (m *Metrics) SetOnlineUsers(n int) {
	if m == nil {
		return
	}
	m.OnlineUsers.Set(float64(n))
}

func (m *Metrics) FrameReceived(event string) {
	if m == nil {
		return
	}
	m.FramesIn.WithLabelValues(event).Inc()
}

func (m *Metrics) Emitted(event string) {
	if m == nil {
		return
	}
	m.FramesOut.WithLabelValues(event).Inc()
}

func (m *Metrics) EmitFailed(event string) {
	if m == nil {
		return
	}
	m.EmitFailures.WithLabelValues(event).Inc()
}

func (m *Metrics) InvalidEvent(event string) {
	if m == nil {
		return
	}
	m.InvalidEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) Fanout(delivered, offline int) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues("delivered").Add(float64(delivered))
	m.Deliveries.WithLabelValues("offline").Add(float64(offline))
}
