package natsx

import (
	"context"
	"fmt"
	"strconv"

	"DreamsChat/service/events"

	"github.com/nats-io/nats.go"
)

const (
	HeaderKind    = "Dreams-Kind"
	HeaderNode    = "Dreams-Node"
	HeaderMsgID   = "Nats-Msg-Id" // JetStream 去重
	defaultPrefix = "im.conv"
)

// msgConn *nats.Conn 的子集
type msgConn interface {
	PublishMsg(m *nats.Msg) error
	Drain() error
}

// Publisher 把网关事件发布到 <prefix>.<conversation_id>
type Publisher struct {
	conn   msgConn
	prefix string
	send   NatsxHandler
}

func NewPublisher(conn msgConn, prefix string, mws ...NatsxMiddleware) *Publisher {
	if prefix == "" {
		prefix = defaultPrefix
	}
	p := &Publisher{conn: conn, prefix: prefix}
	base := func(_ context.Context, msg *nats.Msg) error {
		if err := p.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}
		return nil
	}
	p.send = NatsxChain(base, append([]NatsxMiddleware{WithContextCheck()}, mws...)...)
	return p
}

func (p *Publisher) Subject(conversationID int64) string {
	return p.prefix + "." + strconv.FormatInt(conversationID, 10)
}

// Send 实现 events.Sink
func (p *Publisher) Send(ctx context.Context, ev events.Event, payload []byte) error {
	msg := nats.NewMsg(p.Subject(ev.ConversationID))
	msg.Data = payload
	msg.Header.Set(HeaderKind, string(ev.Kind))
	if ev.Node != "" {
		msg.Header.Set(HeaderNode, ev.Node)
	}
	if ev.Kind == events.KindMessage && ev.MessageID != 0 {
		msg.Header.Set(HeaderMsgID, strconv.FormatInt(ev.MessageID, 10))
	}
	return p.send(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.conn.Drain()
}
