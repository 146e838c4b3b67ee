package events

import (
	"context"
	"sync"
	"time"

	"DreamsChat/service/metrics"
	"DreamsChat/tools/safe"

	"go.uber.org/zap"
)

// Sink 具体的总线驱动（NATS / Kafka）
type Sink interface {
	Send(ctx context.Context, ev Event, payload []byte) error
	Close() error
}

// Dispatcher 有界队列 + 单发送协程；队列满直接丢弃，不阻塞会话
type Dispatcher struct {
	sink    Sink
	ch      chan Event
	timeout time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(sink Sink, queue int, timeout time.Duration, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	if queue <= 0 {
		queue = 1024
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		sink:    sink,
		ch:      make(chan Event, queue),
		timeout: timeout,
		metrics: m,
		log:     log,
		done:    make(chan struct{}),
	}
	safe.SafeGo("event-dispatcher", d.loop)
	return d
}

func (d *Dispatcher) Publish(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.ch <- ev:
	default:
		d.metrics.EventDropped()
		d.log.Warn("[Bus] queue full, drop event",
			zap.String("kind", string(ev.Kind)),
			zap.Int64("conversation_id", ev.ConversationID))
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for ev := range d.ch {
		payload, err := Encode(ev)
		if err != nil {
			d.log.Error("[Bus] encode event", zap.Error(err))
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err = d.sink.Send(ctx, ev, payload)
		cancel()
		if err != nil {
			d.metrics.EventFailed()
			d.log.Warn("[Bus] send event failed",
				zap.String("kind", string(ev.Kind)),
				zap.Int64("conversation_id", ev.ConversationID),
				zap.Error(err))
		}
	}
}

// Close 停止接收，发完队列里剩余的事件后关闭 sink
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.sink.Close()
}
