package chat

import (
	"strings"

	"DreamsChat/tools/decode"
	"DreamsChat/tools/errs"
)

// 出站帧类型
const (
	FrameTypeMessage = "message"
	FrameTypeSystem  = "system"

	SystemEventJoin  = "join"
	SystemEventLeave = "leave"
)

// 入站帧按 JSON 类型严格解码：{"content":12345} 之类不会被转成字符串
var strictFrame = decode.Options{WeaklyTypedInput: false}

// AuthFrame 握手帧，必须是连接上的第一帧
type AuthFrame struct {
	Token string `json:"token"`
}

// ContentFrame 之后的每一帧；其它字段忽略
type ContentFrame struct {
	Content string `json:"content"`
}

// MessageFrame 广播给会话内所有连接（包括发送者自己）
type MessageFrame struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	Content        string `json:"content"`
	Device         Device `json:"device"`
}

// SystemFrame join/leave 通知
type SystemFrame struct {
	Type           string `json:"type"`
	Event          string `json:"event"`
	ConversationID int64  `json:"conversation_id"`
	UID            int64  `json:"uid"`
	Device         Device `json:"device"`
}

func ParseAuthFrame(raw []byte) (string, error) {
	f, err := decode.DecodeJSON[AuthFrame](raw, strictFrame)
	if err != nil {
		return "", errs.ErrBadFrame.WrapMsg(err.Error())
	}
	token := strings.TrimSpace(f.Token)
	if token == "" {
		return "", errs.ErrTokenMissing.Wrap()
	}
	return token, nil
}

// ParseContentFrame 返回去掉首尾空白后的内容；空内容由调用方丢弃
func ParseContentFrame(raw []byte) (string, error) {
	f, err := decode.DecodeJSON[ContentFrame](raw, strictFrame)
	if err != nil {
		return "", errs.ErrBadFrame.WrapMsg(err.Error())
	}
	return strings.TrimSpace(f.Content), nil
}

func NewMessageFrame(conversationID, senderID int64, content string, device Device) MessageFrame {
	return MessageFrame{
		Type:           FrameTypeMessage,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Device:         device,
	}
}

func NewSystemFrame(event string, conversationID, uid int64, device Device) SystemFrame {
	return SystemFrame{
		Type:           FrameTypeSystem,
		Event:          event,
		ConversationID: conversationID,
		UID:            uid,
		Device:         device,
	}
}
