package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"DreamsChat/service/metrics"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	id string

	mu       sync.Mutex
	received [][]byte
	fail     atomic.Bool
	closed   atomic.Int32 // close code, 0 = open
}

func newFakePeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(payload []byte) error {
	if p.fail.Load() {
		return errors.New("queue full")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, payload)
	return nil
}

func (p *fakePeer) Close(code int, _ string) { p.closed.CompareAndSwap(0, int32(code)) }

func (p *fakePeer) frames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.received))
	for _, b := range p.received {
		out = append(out, string(b))
	}
	return out
}

func newTestRegistry() *Registry {
	return NewRegistry(metrics.New(prometheus.NewRegistry()), nil)
}

func TestRegistry_JoinCreatesRoomAndLeaveDiscardsIt(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	a, b := newFakePeer("a"), newFakePeer("b")

	// Given two connections in conversation 1
	r.Join(1, a, 10, DeviceDesktop)
	r.Join(1, b, 20, DeviceMobile)
	req.Equal(2, r.Size(1))
	req.Equal(1, r.Rooms())

	// When both leave
	req.True(r.Leave(1, a))
	req.True(r.Leave(1, b))

	// Then the room is gone
	req.Equal(0, r.Size(1))
	req.Equal(0, r.Rooms())
	req.Equal(0, r.Connections())
}

func TestRegistry_JoinIsIdempotentPerConnection(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	a := newFakePeer("a")

	r.Join(1, a, 10, DeviceDesktop)
	r.Join(1, a, 10, DeviceMobile)

	req.Equal(1, r.Size(1))
	req.Equal(1, r.Connections())
	req.Equal(DeviceMobile, r.Members(1)[0].Device)
}

func TestRegistry_SameUserMultipleConnectionsTrackedIndependently(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	phone, laptop := newFakePeer("phone"), newFakePeer("laptop")

	r.Join(1, phone, 10, DeviceMobile)
	r.Join(1, laptop, 10, DeviceDesktop)
	req.Equal(2, r.Size(1))

	// Leaving one connection keeps the other
	r.Leave(1, phone)
	req.Equal(1, r.Size(1))
	req.Equal("laptop", r.Members(1)[0].Peer.ID())
}

func TestRegistry_LeaveUnknownIsNoOp(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	a := newFakePeer("a")

	req.False(r.Leave(99, a))
	r.Join(1, a, 10, DeviceDesktop)
	req.True(r.Leave(1, a))
	req.False(r.Leave(1, a))
	req.False(r.Leave(2, a))
}

func TestRegistry_BroadcastEmptyConversationIsNoOp(t *testing.T) {
	r := newTestRegistry()
	require.Equal(t, 0, r.Broadcast(42, NewSystemFrame(SystemEventJoin, 42, 1, DeviceDesktop)))
	require.Equal(t, 0, r.Rooms())
}

func TestRegistry_BroadcastSerializesOnceAndReachesEveryone(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	a, b := newFakePeer("a"), newFakePeer("b")
	other := newFakePeer("other")
	r.Join(1, a, 10, DeviceDesktop)
	r.Join(1, b, 20, DeviceDesktop)
	r.Join(2, other, 30, DeviceDesktop)

	n := r.Broadcast(1, NewMessageFrame(1, 10, "hi", DeviceDesktop))

	req.Equal(2, n)
	req.Len(a.frames(), 1)
	req.Equal(a.frames(), b.frames())
	req.Empty(other.frames())

	var got MessageFrame
	req.NoError(json.Unmarshal([]byte(a.frames()[0]), &got))
	req.Equal("hi", got.Content)
	req.Equal(int64(10), got.SenderID)
}

func TestRegistry_BroadcastEvictsFailingMember(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	a, b, c := newFakePeer("a"), newFakePeer("b"), newFakePeer("c")
	r.Join(1, a, 10, DeviceDesktop)
	r.Join(1, b, 20, DeviceDesktop)
	r.Join(1, c, 30, DeviceDesktop)

	// Given b can no longer accept frames
	b.fail.Store(true)

	// When broadcasting
	n := r.Broadcast(1, NewMessageFrame(1, 10, "x", DeviceDesktop))

	// Then the others still get it and b is removed and closed
	req.Equal(2, n)
	req.Len(a.frames(), 1)
	req.Len(c.frames(), 1)
	req.Equal(2, r.Size(1))
	req.Equal(int32(websocket.CloseTryAgainLater), b.closed.Load())
	for _, m := range r.Members(1) {
		req.NotEqual("b", m.Peer.ID())
	}
}

func TestRegistry_BroadcastEvictingLastMemberDiscardsRoom(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	a := newFakePeer("a")
	a.fail.Store(true)
	r.Join(5, a, 10, DeviceDesktop)

	req.Equal(0, r.Broadcast(5, NewMessageFrame(5, 10, "x", DeviceDesktop)))
	req.Equal(0, r.Rooms())
}

func TestRegistry_ConcurrentJoinLeaveBroadcastKeepsCount(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()

	const workers = 16
	const perWorker = 200
	var (
		wg     sync.WaitGroup
		joined atomic.Int64
		left   atomic.Int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(w)))
			var mine []*fakePeer
			for i := 0; i < perWorker; i++ {
				switch rnd.Intn(3) {
				case 0:
					p := newFakePeer(fmt.Sprintf("%d-%d", w, i))
					r.Join(1, p, int64(w), DeviceDesktop)
					mine = append(mine, p)
					joined.Add(1)
				case 1:
					if len(mine) > 0 {
						p := mine[len(mine)-1]
						mine = mine[:len(mine)-1]
						if r.Leave(1, p) {
							left.Add(1)
						}
					}
				default:
					r.Broadcast(1, NewMessageFrame(1, int64(w), "m", DeviceDesktop))
				}
			}
		}(w)
	}
	wg.Wait()

	req.Equal(int(joined.Load()-left.Load()), r.Size(1))
	req.Equal(r.Size(1), r.Connections())
}

func TestRegistry_ConcurrentBroadcastsSameOrderForAllMembers(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	peers := make([]*fakePeer, 5)
	for i := range peers {
		peers[i] = newFakePeer(fmt.Sprintf("p%d", i))
		r.Join(1, peers[i], int64(i), DeviceDesktop)
	}

	var wg sync.WaitGroup
	for s := 0; s < 4; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Broadcast(1, NewMessageFrame(1, int64(s), fmt.Sprintf("%d-%d", s, i), DeviceDesktop))
			}
		}(s)
	}
	wg.Wait()

	want := peers[0].frames()
	req.Len(want, 400)
	for _, p := range peers[1:] {
		req.Equal(want, p.frames())
	}
}
