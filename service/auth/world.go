package auth

import "context"

// DefaultWorldID 世界频道：所有已认证用户都是成员
const DefaultWorldID int64 = 1

type Oracle interface {
	IsMember(ctx context.Context, userID, conversationID int64) (bool, error)
}

type WorldOracle struct {
	inner   Oracle
	worldID int64
}

// NewWorldOracle worldID<=0 时关闭世界频道，直接透传
func NewWorldOracle(inner Oracle, worldID int64) *WorldOracle {
	return &WorldOracle{inner: inner, worldID: worldID}
}

func (w *WorldOracle) IsMember(ctx context.Context, userID, conversationID int64) (bool, error) {
	if w.worldID > 0 && conversationID == w.worldID {
		return true, nil
	}
	return w.inner.IsMember(ctx, userID, conversationID)
}
