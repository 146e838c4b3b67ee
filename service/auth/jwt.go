package auth

import (
	"context"

	"DreamsChat/tools/errs"
	"DreamsChat/tools/security"
)

// JWTResolver 无状态 token：校验签名与过期，sub 即 uid
type JWTResolver struct {
	opts security.Options
}

func NewJWTResolver(opts security.Options) *JWTResolver {
	return &JWTResolver{opts: opts}
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (int64, error) {
	if token == "" {
		return 0, errs.ErrTokenMissing.Wrap()
	}
	claims, err := security.Verify(r.opts, token)
	if err != nil {
		return 0, errs.ErrTokenInvalid.WrapMsg(err.Error())
	}
	uid, err := claims.UserID()
	if err != nil || uid <= 0 {
		return 0, errs.ErrTokenInvalid.WrapMsg("bad subject")
	}
	return uid, nil
}
