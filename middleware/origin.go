package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// OriginAllowed websocket 握手的 Origin 校验。
// 列表为空时放行所有；没有 Origin 头（非浏览器客户端）也放行。
func OriginAllowed(allowed []string) func(r *http.Request) bool {
	allow := lo.SliceToMap(allowed, func(o string) (string, struct{}) {
		return strings.ToLower(strings.TrimRight(o, "/")), struct{}{}
	})
	_, wildcard := allow["*"]
	return func(r *http.Request) bool {
		if len(allow) == 0 || wildcard {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		_, ok := allow[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// Origin 给 HTTP 接口加 CORS 头；不在白名单的跨域请求直接 403
func Origin(allowed []string) gin.HandlerFunc {
	check := OriginAllowed(allowed)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		if !check(c.Request) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Vary", "Origin")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
