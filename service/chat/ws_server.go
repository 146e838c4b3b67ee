package chat

import (
	"net/http"
	"strconv"

	"DreamsChat/global"
	"DreamsChat/tools/errs"
	"DreamsChat/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const closeGoingAway = websocket.CloseGoingAway

// HandleWS GET /ws/:conversation_id
func (s *Server) HandleWS(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil || conversationID <= 0 {
		err = errs.ErrArgs.WrapMsg("invalid conversation_id")
		c.AbortWithStatusJSON(http.StatusBadRequest, global.Fail(err))
		return
	}
	if s.shuttingDown() {
		err = errs.ErrShuttingDown.Wrap()
		c.AbortWithStatusJSON(global.HTTPStatus(err), global.Fail(err))
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.origin,
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败；Upgrade 已写回错误响应
		s.log.Info("[WS] upgrade failed", zap.Error(err))
		return
	}

	connID := ids.GenerateString()
	log := s.log.With(zap.String("conn_id", connID), zap.Int64("conversation_id", conversationID))
	conn := newConn(connID, ws, s.conf, log)
	// 握手帧同样受单帧上限约束
	ws.SetReadLimit(s.conf.MaxFrameBytes)
	go conn.writePump()

	if !s.track(conn) {
		conn.Close(closeGoingAway, "server shutting down")
		<-conn.Stopped()
		return
	}
	defer s.untrack(conn)

	ss := &session{
		srv:            s,
		conn:           conn,
		conversationID: conversationID,
		device:         DetectDevice(c.GetHeader("User-Agent")),
		log:            log,
	}
	ss.setState(StateConnecting)
	ss.run(c.Request.Context())

	// 等写协程发完关闭帧并关闭 socket
	<-conn.Stopped()
}
