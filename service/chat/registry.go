package chat

import (
	"encoding/json"
	"sync"

	"DreamsChat/service/metrics"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Peer is one live connection as seen by the registry. Send must not block:
// it either enqueues the frame or reports the connection as unusable.
type Peer interface {
	ID() string
	Send(payload []byte) error
	Close(code int, reason string)
}

// Member 一条连接记录
type Member struct {
	Peer   Peer
	UserID int64
	Device Device
}

// room 同一会话的连接集合；order 串行化广播，保证所有成员看到相同顺序
type room struct {
	order   sync.Mutex
	members map[Peer]Member
}

// Registry 会话 -> 在线连接。房间首次 Join 时创建，最后一个成员离开时删除。
type Registry struct {
	mu    sync.RWMutex
	rooms map[int64]*room
	conns int

	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewRegistry(m *metrics.Metrics, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		rooms:   make(map[int64]*room),
		metrics: m,
		log:     log,
	}
}

// Join 重复 Join 同一连接只更新记录
func (r *Registry) Join(conversationID int64, p Peer, userID int64, device Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[conversationID]
	if rm == nil {
		rm = &room{members: make(map[Peer]Member)}
		r.rooms[conversationID] = rm
		r.metrics.SetRooms(len(r.rooms))
	}
	if _, exists := rm.members[p]; !exists {
		r.conns++
		r.metrics.ConnJoined()
	}
	rm.members[p] = Member{Peer: p, UserID: userID, Device: device}
}

// Leave 按连接身份移除；不存在时是空操作。返回是否真的移除了。
func (r *Registry) Leave(conversationID int64, p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[conversationID]
	if rm == nil {
		return false
	}
	if _, ok := rm.members[p]; !ok {
		return false
	}
	delete(rm.members, p)
	r.conns--
	r.metrics.ConnLeft()
	if len(rm.members) == 0 {
		delete(r.rooms, conversationID)
		r.metrics.SetRooms(len(r.rooms))
	}
	return true
}

// Broadcast 序列化一次后发给会话内每条连接，返回成功入队的数量。
// 发送失败的连接会被移出房间并关闭。
func (r *Registry) Broadcast(conversationID int64, v any) int {
	payload, err := json.Marshal(v)
	if err != nil {
		r.log.Error("marshal broadcast frame", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return 0
	}
	return r.BroadcastRaw(conversationID, payload)
}

func (r *Registry) BroadcastRaw(conversationID int64, payload []byte) int {
	var (
		delivered int
		failed    []Member
	)
	for {
		r.mu.RLock()
		rm := r.rooms[conversationID]
		r.mu.RUnlock()
		if rm == nil {
			return 0
		}

		rm.order.Lock()
		r.mu.RLock()
		if r.rooms[conversationID] != rm {
			// 房间在拿锁期间被删掉又重建，换新房间重试
			r.mu.RUnlock()
			rm.order.Unlock()
			continue
		}
		targets := lo.Values(rm.members)
		r.mu.RUnlock()

		for _, m := range targets {
			if err := m.Peer.Send(payload); err != nil {
				failed = append(failed, m)
				continue
			}
			delivered++
		}
		rm.order.Unlock()
		break
	}

	r.metrics.Broadcast(delivered)
	for _, m := range failed {
		if r.Leave(conversationID, m.Peer) {
			r.metrics.Evicted(1)
		}
		r.log.Warn("evict connection after failed send",
			zap.Int64("conversation_id", conversationID),
			zap.Int64("uid", m.UserID),
			zap.String("conn_id", m.Peer.ID()))
		m.Peer.Close(websocket.CloseTryAgainLater, "send failed")
	}
	return delivered
}

// Members 当前成员快照
func (r *Registry) Members(conversationID int64) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm := r.rooms[conversationID]
	if rm == nil {
		return nil
	}
	return lo.Values(rm.members)
}

func (r *Registry) Size(conversationID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rm := r.rooms[conversationID]; rm != nil {
		return len(rm.members)
	}
	return 0
}

func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns
}
