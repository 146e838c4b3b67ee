package model

import "time"

const (
	MsgTableName     = "dreams_messages"             // 集合名/表名
	MemberTableName  = "dreams_conversation_members" // 会话成员
	SessionTableName = "dreams_sessions"             // token -> uid
)

// Message 一条已落库的会话消息，写入后不可变。
// 同一会话内按 created_at 升序、再按 id 升序排列。
type Message struct {
	ID             int64     `bson:"_id" json:"id" db:"id"`
	ConversationID int64     `bson:"conversation_id" json:"conversation_id" db:"conversation_id"`
	SenderID       int64     `bson:"sender_id" json:"sender_id" db:"sender_id"`
	Content        string    `bson:"content" json:"content" db:"content"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at" db:"created_at"`
}

// Member 会话成员关系（只读；增删由会话管理服务负责）
type Member struct {
	ConversationID int64     `bson:"conversation_id" json:"conversation_id" db:"conversation_id"`
	UserID         int64     `bson:"user_id" json:"user_id" db:"user_id"`
	Role           string    `bson:"role" json:"role" db:"role"`
	JoinedAt       time.Time `bson:"joined_at" json:"joined_at" db:"joined_at"`
}

// Less 会话内的排序规则
func (m Message) Less(o Message) bool {
	if m.CreatedAt.Equal(o.CreatedAt) {
		return m.ID < o.ID
	}
	return m.CreatedAt.Before(o.CreatedAt)
}
