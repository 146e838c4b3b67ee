package chat

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"DreamsChat/service/events"
	"DreamsChat/service/metrics"
	"DreamsChat/tools/errs"
	"DreamsChat/tools/safe"
	"DreamsChat/tools/security"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// session 单连接控制循环：
// Connecting -> Authenticating -> Joined -> Streaming -> Closed
type session struct {
	srv            *Server
	conn           *Conn
	conversationID int64
	device         Device
	userID         int64

	state     atomic.Int32
	leaveOnce sync.Once
	log       *zap.Logger
}

func (ss *session) setState(s State) {
	ss.state.Store(int32(s))
	ss.log.Debug("[WS] state", zap.Stringer("state", s))
}

func (ss *session) run(ctx context.Context) {
	ss.setState(StateAuthenticating)
	uid, err := ss.authenticate(ctx)
	if err != nil {
		ss.reject(err)
		return
	}
	ss.userID = uid
	ss.log = ss.log.With(zap.Int64("uid", uid))

	defer ss.teardown()
	defer safe.Recover("ws-session", nil)

	ss.join(ctx)
	ss.setState(StateStreaming)
	ss.stream(ctx)
}

func (ss *session) authenticate(ctx context.Context) (int64, error) {
	ws := ss.conn.ws
	_ = ws.SetReadDeadline(time.Now().Add(ss.srv.conf.HandshakeTimeout))

	_, data, err := ws.ReadMessage()
	if err != nil {
		return 0, errs.ErrTokenMissing.WrapMsg("no handshake frame", "err", err)
	}
	token, err := ParseAuthFrame(data)
	if err != nil {
		return 0, err
	}

	opCtx, cancel := context.WithTimeout(ctx, ss.srv.conf.StoreTimeout)
	defer cancel()

	uid, err := ss.srv.tokens.Resolve(opCtx, token)
	if err != nil {
		return 0, errs.ErrTokenInvalid.WrapMsg("resolve token", "token", security.HashToken(token)[:19], "err", err)
	}

	ok, err := ss.srv.members.IsMember(opCtx, uid, ss.conversationID)
	if err != nil {
		return 0, errs.ErrNotMember.WrapMsg("membership lookup failed", "uid", uid, "err", err)
	}
	if !ok {
		return 0, errs.ErrNotMember.WrapMsg("not a member", "uid", uid)
	}
	return uid, nil
}

func (ss *session) reject(err error) {
	reason := "invalid token"
	label := metrics.RejectToken
	switch {
	case errs.ErrNotMember.Is(err):
		reason, label = "not a member", metrics.RejectNotMember
	case errs.ErrBadFrame.Is(err):
		label = metrics.RejectBadFrame
	}
	ss.srv.metrics.Rejected(label)
	ss.log.Info("[WS] admission refused", zap.String("reason", reason), zap.Error(err))
	ss.conn.Close(websocket.ClosePolicyViolation, reason)
	ss.setState(StateClosed)
}

func (ss *session) join(ctx context.Context) {
	ss.srv.registry.Join(ss.conversationID, ss.conn, ss.userID, ss.device)
	ss.setState(StateJoined)
	ss.log.Info("[WS] joined")

	if ss.srv.presence != nil {
		opCtx, cancel := context.WithTimeout(ctx, ss.srv.conf.StoreTimeout)
		if err := ss.srv.presence.Online(opCtx, ss.userID, ss.conn.ID(), ss.srv.conf.PresenceTTL); err != nil {
			ss.log.Warn("[WS] presence online failed", zap.Error(err))
		}
		cancel()
	}

	ss.srv.registry.Broadcast(ss.conversationID, NewSystemFrame(SystemEventJoin, ss.conversationID, ss.userID, ss.device))
	ss.publish(events.KindJoin, 0, "")
}

func (ss *session) stream(ctx context.Context) {
	ws := ss.conn.ws
	ss.conn.attachKeepalive()

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			ss.logReadErr(err)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			ss.srv.metrics.FrameDropped(metrics.DropType)
			continue
		}

		content, err := ParseContentFrame(data)
		if err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			ss.log.Debug("[WS] drop malformed frame", zap.ByteString("sample", sample), zap.Int("len", len(data)), zap.Error(err))
			ss.srv.metrics.FrameDropped(metrics.DropMalformed)
			continue
		}
		if content == "" {
			ss.srv.metrics.FrameDropped(metrics.DropEmpty)
			continue
		}

		if ss.srv.conf.RecheckMembership && !ss.stillMember(ctx) {
			ss.conn.Close(websocket.ClosePolicyViolation, "not a member")
			return
		}

		ss.handleMessage(ctx, content)
	}
}

// handleMessage 先落库再广播；落库失败不广播，连接保持
func (ss *session) handleMessage(ctx context.Context, content string) {
	opCtx, cancel := context.WithTimeout(ctx, ss.srv.conf.StoreTimeout)
	id, err := ss.srv.store.Append(opCtx, ss.conversationID, ss.userID, content)
	cancel()
	if err != nil {
		ss.srv.metrics.PersistFailed()
		ss.log.Error("[WS] persist message failed, not broadcast", zap.Error(err))
		return
	}

	ss.srv.registry.Broadcast(ss.conversationID, NewMessageFrame(ss.conversationID, ss.userID, content, ss.device))
	ss.publish(events.KindMessage, id, content)
}

func (ss *session) stillMember(ctx context.Context) bool {
	opCtx, cancel := context.WithTimeout(ctx, ss.srv.conf.StoreTimeout)
	defer cancel()
	ok, err := ss.srv.members.IsMember(opCtx, ss.userID, ss.conversationID)
	if err != nil {
		ss.log.Warn("[WS] membership recheck failed", zap.Error(err))
		return false
	}
	if !ok {
		ss.log.Info("[WS] membership revoked")
	}
	return ok
}

// teardown 无论以何种方式结束都只执行一次
func (ss *session) teardown() {
	ss.leaveOnce.Do(func() {
		ss.srv.registry.Leave(ss.conversationID, ss.conn)
		ss.conn.Close(websocket.CloseNormalClosure, "")
		ss.setState(StateClosed)

		ss.srv.registry.Broadcast(ss.conversationID, NewSystemFrame(SystemEventLeave, ss.conversationID, ss.userID, ss.device))
		ss.publish(events.KindLeave, 0, "")

		if ss.srv.presence != nil {
			ctx, cancel := context.WithTimeout(context.Background(), ss.srv.conf.StoreTimeout)
			if err := ss.srv.presence.Offline(ctx, ss.userID, ss.conn.ID()); err != nil {
				ss.log.Warn("[WS] presence offline failed", zap.Error(err))
			}
			cancel()
		}
		ss.log.Info("[WS] left")
	})
}

func (ss *session) publish(kind events.Kind, messageID int64, content string) {
	if ss.srv.events == nil {
		return
	}
	ss.srv.events.Publish(events.Event{
		Kind:           kind,
		ConversationID: ss.conversationID,
		UserID:         ss.userID,
		MessageID:      messageID,
		Content:        content,
		Device:         string(ss.device),
		At:             time.Now().UTC(),
		Node:           ss.srv.node,
	})
}

func (ss *session) logReadErr(err error) {
	var ne net.Error
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	):
		ss.log.Info("[WS] peer closed", zap.Error(err))
	case errors.As(err, &ne) && ne.Timeout():
		ss.log.Info("[WS] read timeout", zap.Error(err))
	default:
		ss.log.Info("[WS] read err", zap.Error(err))
	}
}
