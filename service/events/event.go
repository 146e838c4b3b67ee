package events

import (
	"fmt"
	"strconv"
	"time"

	"DreamsChat/tools/decode"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type Kind string

const (
	KindMessage Kind = "message"
	KindJoin    Kind = "join"
	KindLeave   Kind = "leave"
)

// Event 网关向消息总线发布的事件
type Event struct {
	Kind           Kind
	ConversationID int64
	UserID         int64
	MessageID      int64 // 仅 message
	Content        string
	Device         string
	At             time.Time
	Node           string
}

// Key 分区/路由键：同一会话的事件保持有序
func (e Event) Key() string { return strconv.FormatInt(e.ConversationID, 10) }

// wire 结构；int64 按字符串编码，避免 structpb 的 float64 丢精度
type wire struct {
	Kind           string `json:"kind"`
	ConversationID int64  `json:"conversation_id"`
	UserID         int64  `json:"uid"`
	MessageID      int64  `json:"message_id"`
	Content        string `json:"content"`
	Device         string `json:"device"`
	At             string `json:"at"`
	Node           string `json:"node"`
}

// Encode protojson(Struct)
func Encode(e Event) ([]byte, error) {
	m := map[string]any{
		"kind":            string(e.Kind),
		"conversation_id": strconv.FormatInt(e.ConversationID, 10),
		"uid":             strconv.FormatInt(e.UserID, 10),
		"device":          e.Device,
		"at":              e.At.UTC().Format(time.RFC3339Nano),
		"node":            e.Node,
	}
	if e.Kind == KindMessage {
		m["message_id"] = strconv.FormatInt(e.MessageID, 10)
		m["content"] = e.Content
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build event struct: %w", err)
	}
	return protojson.Marshal(st)
}

func Decode(raw []byte) (Event, error) {
	st := &structpb.Struct{}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(raw, st); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	w, err := decode.DecodeStruct[wire](st)
	if err != nil {
		return Event{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, w.At)
	if err != nil {
		return Event{}, fmt.Errorf("event time: %w", err)
	}
	return Event{
		Kind:           Kind(w.Kind),
		ConversationID: w.ConversationID,
		UserID:         w.UserID,
		MessageID:      w.MessageID,
		Content:        w.Content,
		Device:         w.Device,
		At:             at,
		Node:           w.Node,
	}, nil
}
