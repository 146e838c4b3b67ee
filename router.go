package main

import (
	"net/http"

	"DreamsChat/global"
	"DreamsChat/logger"
	"DreamsChat/middleware"
	midsec "DreamsChat/middleware/security"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter HTTP 入口：websocket、历史消息、健康检查与指标
func newRouter(app *App) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(logger.Named("http")),
		middleware.Origin(app.cfg.HTTP.AllowedOrigins),
	)

	r.GET("/healthz", func(c *gin.Context) {
		reg := app.chat.Registry()
		c.JSON(http.StatusOK, global.Success(gin.H{
			"node":        app.cfg.Node.ID,
			"rooms":       reg.Rooms(),
			"connections": reg.Connections(),
		}))
	})
	if app.registry != nil {
		r.GET(app.cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})))
	}

	// 首帧带 token，握手本身不做认证
	r.GET("/ws/:conversation_id", app.chat.HandleWS)

	api := r.Group("/api")
	middleware.GET(api, "/conversations/:conversation_id/messages", app.history.List, middleware.RouteOpt{
		IsAuth: true,
		Auth:   midsec.DefaultOptions(app.tokens),
	})
	return r
}
