package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// presence key: im:presence:<uid>  hash: connID -> node
// 整个 key 的 TTL 在每次上线时续期
func presenceKey(userID int64) string { return "im:presence:" + strconv.FormatInt(userID, 10) }

type Presence struct {
	rdb  redis.Cmdable
	node string
}

func NewPresence(rdb redis.Cmdable, node string) *Presence {
	return &Presence{rdb: rdb, node: node}
}

func (p *Presence) Online(ctx context.Context, userID int64, connID string, ttl time.Duration) error {
	key := presenceKey(userID)
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, connID, p.node)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

// Offline 只删除本连接；最后一个连接删除后 key 自然消失
func (p *Presence) Offline(ctx context.Context, userID int64, connID string) error {
	return p.rdb.HDel(ctx, presenceKey(userID), connID).Err()
}
