package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	midsec "DreamsChat/middleware/security"
	"DreamsChat/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticResolver map[string]int64

func (s staticResolver) Resolve(_ context.Context, token string) (int64, error) {
	if uid, ok := s[token]; ok {
		return uid, nil
	}
	return 0, errs.ErrTokenInvalid.Wrap()
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.NewNop()))
	return r
}

func do(r http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRoute_AuthRequired(t *testing.T) {
	req := require.New(t)
	// Given
	r := newEngine()
	opt := RouteOpt{IsAuth: true, Auth: midsec.DefaultOptions(staticResolver{"good": 7})}
	GET(r, "/me", func(c *gin.Context) {
		uid, _ := midsec.UserID(c)
		c.JSON(http.StatusOK, gin.H{"uid": uid})
	}, opt)
	POST(r, "/open", func(c *gin.Context) { c.Status(http.StatusNoContent) }, RouteOpt{})

	// When / Then
	w := do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer good"})
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"uid":7}`, w.Body.String())
	req.NotEmpty(w.Header().Get(HeaderRequestID))

	w = do(r, http.MethodGet, "/me", map[string]string{"authorization": "good"})
	req.Equal(http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/me", nil)
	req.Equal(http.StatusUnauthorized, w.Code)
	req.Contains(w.Body.String(), "TokenMissingError")

	w = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer bad"})
	req.Equal(http.StatusUnauthorized, w.Code)
	req.Contains(w.Body.String(), "TokenInvalidError")

	w = do(r, http.MethodPost, "/open", nil)
	req.Equal(http.StatusNoContent, w.Code)
}

func TestRequestID_PassThrough(t *testing.T) {
	r := newEngine()
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestIDKey)) })

	w := do(r, http.MethodGet, "/x", map[string]string{HeaderRequestID: "abc-123"})
	require.Equal(t, "abc-123", w.Body.String())
	require.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestOriginAllowed(t *testing.T) {
	req := require.New(t)
	mk := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws/1", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := OriginAllowed(nil)
	req.True(open(mk("https://evil.example")))

	check := OriginAllowed([]string{"https://chat.example/"})
	req.True(check(mk("https://chat.example")))
	req.True(check(mk("HTTPS://Chat.Example")))
	req.True(check(mk("")))
	req.False(check(mk("https://evil.example")))
	req.False(check(mk("::bad")))

	req.True(OriginAllowed([]string{"*"})(mk("https://any.example")))
}

func TestOriginMiddleware(t *testing.T) {
	req := require.New(t)
	r := newEngine()
	r.Use(Origin([]string{"https://chat.example"}))
	r.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/api", map[string]string{"Origin": "https://chat.example"})
	req.Equal(http.StatusOK, w.Code)
	req.Equal("https://chat.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodGet, "/api", map[string]string{"Origin": "https://evil.example"})
	req.Equal(http.StatusForbidden, w.Code)

	w = do(r, http.MethodOptions, "/api", map[string]string{"Origin": "https://chat.example"})
	req.Equal(http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api", nil)
	req.Equal(http.StatusOK, w.Code)
}
