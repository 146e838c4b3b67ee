package auth

import (
	"context"

	"DreamsChat/tools/errs"
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// Chain 依次尝试，第一个成功的生效；全部失败返回最后一个错误
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, token string) (int64, error) {
	if len(c) == 0 {
		return 0, errs.ErrTokenInvalid.WrapMsg("no resolver configured")
	}
	var lastErr error
	for _, r := range c {
		uid, err := r.Resolve(ctx, token)
		if err == nil {
			return uid, nil
		}
		lastErr = err
	}
	return 0, lastErr
}
