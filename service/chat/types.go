package chat

import "time"

// Conf 连接与会话参数
type Conf struct {
	HandshakeTimeout  time.Duration // 首帧（token）必须在此时间内到达
	PingPeriod        time.Duration // 服务端 ping 周期，必须小于 PongWait
	PongWait          time.Duration // 超过该时间没有任何入站数据/pong 视为掉线
	WriteWait         time.Duration // 单帧写超时
	SendQueue         int           // 每连接发送队列长度，满了即视为慢消费者
	MaxFrameBytes     int64         // 单帧读取上限
	StoreTimeout      time.Duration // 校验成员、落库的超时
	RecheckMembership bool          // 每条消息前重新校验成员关系
	PresenceTTL       time.Duration
}

func (c *Conf) norm() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = 64 << 10
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.PresenceTTL <= 0 {
		c.PresenceTTL = 2 * time.Hour
	}
}

// State 会话状态机
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateJoined
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoined:
		return "joined"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
