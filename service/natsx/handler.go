package natsx

import (
	"time"

	"github.com/golang/glog"
	"github.com/nats-io/nats.go"
	"golang.org/x/net/context"
)

// NatsxHandler 发送链上的处理函数
type NatsxHandler func(ctx context.Context, msg *nats.Msg) error

// NatsxMiddleware 中间件（日志、指标、重试等）
type NatsxMiddleware func(NatsxHandler) NatsxHandler

// NatsxChain 组合中间件，先注册的在最外层
func NatsxChain(h NatsxHandler, mws ...NatsxMiddleware) NatsxHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// WithLogging 失败时记录主题与耗时
func WithLogging() NatsxMiddleware {
	return func(next NatsxHandler) NatsxHandler {
		return func(ctx context.Context, msg *nats.Msg) error {
			start := time.Now()
			err := next(ctx, msg)
			if err != nil {
				glog.Warningf("[NATS] publish subject=%s cost=%s err=%v", msg.Subject, time.Since(start), err)
			} else if glog.V(2) {
				glog.Infof("[NATS] publish subject=%s cost=%s", msg.Subject, time.Since(start))
			}
			return err
		}
	}
}

// WithContextCheck 已取消的上下文不再发送
func WithContextCheck() NatsxMiddleware {
	return func(next NatsxHandler) NatsxHandler {
		return func(ctx context.Context, msg *nats.Msg) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return next(ctx, msg)
		}
	}
}
