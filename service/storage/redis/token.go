package redis

import (
	"context"
	"errors"
	"strconv"

	"DreamsChat/tools/errs"

	"github.com/redis/go-redis/v9"
)

// token key: im:token:<token>  value: uid
func tokenKey(token string) string { return "im:token:" + token }

// TokenStore 会话 token -> 用户，由登录服务写入
type TokenStore struct {
	rdb redis.Cmdable
}

func NewTokenStore(rdb redis.Cmdable) *TokenStore {
	return &TokenStore{rdb: rdb}
}

func (s *TokenStore) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, errs.ErrTokenMissing.Wrap()
	}
	val, err := s.rdb.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, errs.ErrTokenInvalid.Wrap()
	}
	if err != nil {
		return 0, errs.WrapMsg(err, "redis get token")
	}
	uid, err := strconv.ParseInt(val, 10, 64)
	if err != nil || uid <= 0 {
		return 0, errs.ErrTokenInvalid.WrapMsg("corrupt token value", "value", val)
	}
	return uid, nil
}
