package natsx

import (
	"context"
	"errors"
	"testing"
	"time"

	"DreamsChat/service/events"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	msgs    []*nats.Msg
	err     error
	drained bool
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublisher_SendMessageEvent(t *testing.T) {
	req := require.New(t)
	// Given
	conn := &fakeConn{}
	p := NewPublisher(conn, "", WithLogging())
	ev := events.Event{Kind: events.KindMessage, ConversationID: 7, UserID: 3, MessageID: 99, Node: "gw-1", At: time.Now()}

	// When
	err := p.Send(context.Background(), ev, []byte(`{"k":1}`))

	// Then
	req.NoError(err)
	req.Len(conn.msgs, 1)
	msg := conn.msgs[0]
	req.Equal("im.conv.7", msg.Subject)
	req.Equal(`{"k":1}`, string(msg.Data))
	req.Equal("message", msg.Header.Get(HeaderKind))
	req.Equal("99", msg.Header.Get(HeaderMsgID))
	req.Equal("gw-1", msg.Header.Get(HeaderNode))
}

func TestPublisher_SystemEventHasNoDedupID(t *testing.T) {
	req := require.New(t)
	conn := &fakeConn{}
	p := NewPublisher(conn, "chat")

	req.NoError(p.Send(context.Background(), events.Event{Kind: events.KindLeave, ConversationID: 2}, nil))

	req.Equal("chat.2", conn.msgs[0].Subject)
	req.Equal("leave", conn.msgs[0].Header.Get(HeaderKind))
	req.Empty(conn.msgs[0].Header.Get(HeaderMsgID))
}

func TestPublisher_CanceledContextSkipsPublish(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Send(ctx, events.Event{Kind: events.KindJoin, ConversationID: 1}, nil)

	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, conn.msgs)
}

func TestPublisher_ErrorIsWrapped(t *testing.T) {
	boom := errors.New("no responders")
	p := NewPublisher(&fakeConn{err: boom}, "")

	err := p.Send(context.Background(), events.Event{Kind: events.KindJoin, ConversationID: 1}, nil)

	require.ErrorIs(t, err, boom)
}

func TestPublisher_CloseDrains(t *testing.T) {
	conn := &fakeConn{}
	require.NoError(t, NewPublisher(conn, "").Close())
	require.True(t, conn.drained)
}

func TestNatsxChain_Order(t *testing.T) {
	var trace []string
	mw := func(name string) NatsxMiddleware {
		return func(next NatsxHandler) NatsxHandler {
			return func(ctx context.Context, msg *nats.Msg) error {
				trace = append(trace, name)
				return next(ctx, msg)
			}
		}
	}
	h := NatsxChain(func(context.Context, *nats.Msg) error {
		trace = append(trace, "base")
		return nil
	}, mw("a"), mw("b"))

	require.NoError(t, h(context.Background(), nats.NewMsg("x")))
	require.Equal(t, []string{"a", "b", "base"}, trace)
}

func TestConnect_RequiresServers(t *testing.T) {
	_, err := Connect(NatsxConfig{})
	require.Error(t, err)
}
