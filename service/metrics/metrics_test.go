package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	req := require.New(t)
	m := New(prometheus.NewRegistry())

	m.ConnJoined()
	m.ConnJoined()
	m.ConnLeft()
	m.SetRooms(3)
	m.Broadcast(4)
	m.Broadcast(2)
	m.Evicted(1)
	m.Evicted(0)
	m.PersistFailed()
	m.FrameDropped(DropEmpty)
	m.FrameDropped(DropEmpty)
	m.Rejected(RejectNotMember)
	m.EventDropped()

	req.Equal(1.0, testutil.ToFloat64(m.connections))
	req.Equal(3.0, testutil.ToFloat64(m.rooms))
	req.Equal(2.0, testutil.ToFloat64(m.broadcasts))
	req.Equal(6.0, testutil.ToFloat64(m.deliveries))
	req.Equal(1.0, testutil.ToFloat64(m.evictions))
	req.Equal(1.0, testutil.ToFloat64(m.persistFailures))
	req.Equal(2.0, testutil.ToFloat64(m.droppedFrames.WithLabelValues(DropEmpty)))
	req.Equal(1.0, testutil.ToFloat64(m.rejected.WithLabelValues(RejectNotMember)))
	req.Equal(1.0, testutil.ToFloat64(m.eventsDropped))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ConnJoined()
		m.ConnLeft()
		m.SetRooms(1)
		m.Broadcast(1)
		m.Evicted(1)
		m.PersistFailed()
		m.FrameDropped(DropMalformed)
		m.Rejected(RejectToken)
		m.EventDropped()
		m.EventFailed()
	})
}
