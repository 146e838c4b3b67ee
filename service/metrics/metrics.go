package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dreams"

// Metrics 网关指标。所有方法允许 nil 接收者，未启用指标时直接传 nil。
type Metrics struct {
	connections     prometheus.Gauge
	rooms           prometheus.Gauge
	broadcasts      prometheus.Counter
	deliveries      prometheus.Counter
	evictions       prometheus.Counter
	persistFailures prometheus.Counter
	droppedFrames   *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	eventsDropped   prometheus.Counter
	eventsFailed    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ws", Name: "connections",
			Help: "Live joined websocket connections.",
		}),
		rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ws", Name: "rooms",
			Help: "Conversations with at least one live connection.",
		}),
		broadcasts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ws", Name: "broadcasts_total",
			Help: "Broadcast passes over a room.",
		}),
		deliveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ws", Name: "deliveries_total",
			Help: "Frames enqueued to a connection.",
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ws", Name: "evictions_total",
			Help: "Connections removed after a failed delivery.",
		}),
		persistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "append_failures_total",
			Help: "Messages not broadcast because persistence failed.",
		}),
		droppedFrames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ws", Name: "dropped_frames_total",
			Help: "Inbound frames dropped without effect.",
		}, []string{"reason"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ws", Name: "rejected_total",
			Help: "Connections refused during admission.",
		}, []string{"reason"}),
		eventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "events_dropped_total",
			Help: "Events dropped because the publish queue was full.",
		}),
		eventsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "events_failed_total",
			Help: "Events the bus driver failed to send.",
		}),
	}
}

func (m *Metrics) ConnJoined() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnLeft() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) SetRooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}

func (m *Metrics) Broadcast(delivered int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	m.deliveries.Add(float64(delivered))
}

func (m *Metrics) Evicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.evictions.Add(float64(n))
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// 丢帧原因
const (
	DropMalformed = "malformed"
	DropEmpty     = "empty"
	DropType      = "type"
)

func (m *Metrics) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.droppedFrames.WithLabelValues(reason).Inc()
}

// 拒绝原因
const (
	RejectBadFrame  = "bad_frame"
	RejectToken     = "token"
	RejectNotMember = "not_member"
)

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

func (m *Metrics) EventFailed() {
	if m == nil {
		return
	}
	m.eventsFailed.Inc()
}
