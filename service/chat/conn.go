package chat

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendQueueFull  = errors.New("send queue full")
	errNilWebsocket   = errors.New("nil websocket")
	closeFrameTimeout = time.Second
)

// Conn 一条 websocket 连接。读由会话协程独占，写由 writePump 独占；
// 其它协程只通过 Send 入队、通过 Close 请求关闭。
type Conn struct {
	id     string
	ws     *websocket.Conn
	remote net.Addr
	send   chan []byte
	conf   Conf
	log    *zap.Logger

	closeOnce   sync.Once
	done        chan struct{} // Close 请求
	stopped     chan struct{} // writePump 退出、socket 已关闭
	closeCode   int
	closeReason string
}

func newConn(id string, ws *websocket.Conn, conf Conf, log *zap.Logger) *Conn {
	return &Conn{
		id:      id,
		ws:      ws,
		remote:  ws.RemoteAddr(),
		send:    make(chan []byte, conf.SendQueue),
		conf:    conf,
		log:     log,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Send 非阻塞入队
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendQueueFull
	}
}

// Close 只有第一次调用生效；关闭帧由 writePump 发送
func (c *Conn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// Done 关闭请求发出后返回的 channel 被关闭
func (c *Conn) Done() <-chan struct{} { return c.done }

// Stopped socket 真正关闭后返回的 channel 被关闭
func (c *Conn) Stopped() <-chan struct{} { return c.stopped }

// attachKeepalive 读超时由 pong 续期
func (c *Conn) attachKeepalive() {
	_ = c.ws.SetReadDeadline(time.Now().Add(c.conf.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.conf.PongWait))
	})
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.conf.PingPeriod)
	defer func() {
		ticker.Stop()
		closeQuiet(c.ws)
		close(c.stopped)
	}()

	for {
		select {
		case <-c.done:
			c.flush(time.Now().Add(c.conf.WriteWait))
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeFrameTimeout))
			return
		case payload := <-c.send:
			if err := writeText(c.ws, payload, c.conf.WriteWait); err != nil {
				c.log.Debug("[WS] write failed", zap.String("conn_id", c.id), zap.Error(err))
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.conf.WriteWait)); err != nil {
				c.log.Debug("[WS] ping failed", zap.String("conn_id", c.id), zap.Error(err))
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

// flush 在关闭帧之前把已入队的帧写出去，直到队列为空、写失败或超过 deadline
func (c *Conn) flush(deadline time.Time) {
	for n := 0; ; n++ {
		wait := time.Until(deadline)
		if wait <= 0 {
			c.log.Debug("[WS] flush deadline exceeded", zap.String("conn_id", c.id), zap.Int("flushed", n), zap.Int("dropped", len(c.send)))
			return
		}
		select {
		case payload := <-c.send:
			if err := writeText(c.ws, payload, wait); err != nil {
				c.log.Debug("[WS] flush failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		default:
			return
		}
	}
}

func writeText(ws *websocket.Conn, data []byte, wait time.Duration) error {
	if ws == nil {
		return errNilWebsocket
	}
	if err := ws.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

func closeQuiet(ws *websocket.Conn) {
	if ws != nil {
		_ = ws.Close()
	}
}
