package security

import (
	"context"
	"strings"

	"DreamsChat/global"
	"DreamsChat/tools/errs"

	"github.com/gin-gonic/gin"
)

// context key，后续 handler 统一用这两个 key 读取
const (
	CtxTokenKey  = "authorization" // string
	CtxUserIDKey = "uid"           // int64
)

type TokenResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

type Options struct {
	HeaderToken               string // 默认 "authorization"
	EnableAuthorizationBearer bool   // 默认 true
	QueryToken                string // 浏览器拿不到 header 时的兜底，默认不开启
	Resolver                  TokenResolver
}

func DefaultOptions(r TokenResolver) *Options {
	return &Options{
		HeaderToken:               CtxTokenKey,
		EnableAuthorizationBearer: true,
		Resolver:                  r,
	}
}

func tokenFrom(c *gin.Context, opts *Options) string {
	token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))
	// 兼容 Authorization: Bearer xxx
	if opts.EnableAuthorizationBearer {
		authz := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	if token == "" && opts.QueryToken != "" {
		token = strings.TrimSpace(c.Query(opts.QueryToken))
	}
	return token
}

func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil || opts.Resolver == nil {
		panic("security: token resolver is required")
	}
	return func(c *gin.Context) {
		token := tokenFrom(c, opts)
		if token == "" {
			err := errs.ErrTokenMissing.Wrap()
			c.AbortWithStatusJSON(global.HTTPStatus(err), global.Fail(err))
			return
		}
		uid, err := opts.Resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			// 解析失败的细节不返回给客户端
			err = errs.ErrTokenInvalid.Wrap()
			c.AbortWithStatusJSON(global.HTTPStatus(err), global.Fail(err))
			return
		}
		c.Set(CtxTokenKey, token)
		c.Set(CtxUserIDKey, uid)
		c.Next()
	}
}

// UserID 取出认证后的 uid
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0, false
	}
	uid, ok := v.(int64)
	return uid, ok
}
