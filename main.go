package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DreamsChat/global/config"
	"DreamsChat/logger"
	"DreamsChat/service/nacos"
	"DreamsChat/tools/safe"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/dreams.yaml", "path of the yaml config file")
	flag.Parse()
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Log.Fatal("[Boot] load config", zap.Error(err))
	}

	var watcher *nacos.Watcher
	if cfg.Nacos.Enabled {
		if cfg, watcher, err = watchRemoteConfig(cfg); err != nil {
			logger.Log.Fatal("[Boot] nacos config", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	app, err := Boot(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("[Boot] assemble gateway", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	fatal := make(chan error, 2)
	safe.SafeGo("http-server", func() {
		logger.Info("[HTTP] listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal <- err
		}
	})
	if app.health != nil {
		safe.SafeGo("grpc-health", func() {
			logger.Info("[gRPC] health listening", zap.String("addr", app.health.Addr()))
			if err := app.health.Serve(); err != nil {
				fatal <- err
			}
		})
		app.health.SetServing(true)
	}
	if cfg.Nacos.Enabled && cfg.Nacos.Register {
		if err := registerNode(app, cfg); err != nil {
			logger.Warn("[Nacos] register node", zap.Error(err))
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("[Shutdown] signal received")
	case err := <-fatal:
		logger.Error("[Shutdown] server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownWait)
	defer cancel()
	// websocket 连接已被接管，http.Server.Shutdown 不会等它们；由 App.Close 以 1001 关闭
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("[Shutdown] http server", zap.Error(err))
	}
	app.Close(shutdownCtx)
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Warn("[Shutdown] nacos watcher", zap.Error(err))
		}
	}
	logger.Info("[Shutdown] bye")
}

func nacosConfig(cfg *config.AppConfig) nacos.Config {
	return nacos.Config{
		Host:      cfg.Nacos.Host,
		Port:      cfg.Nacos.Port,
		Namespace: cfg.Nacos.Namespace,
		Username:  cfg.Nacos.Username,
		Password:  cfg.Nacos.Password,
		TimeoutMs: cfg.Nacos.TimeoutMs,
	}
}

// watchRemoteConfig 启动时叠加 nacos 上的配置；之后只热更新日志级别，其余变更需要重启
func watchRemoteConfig(cfg *config.AppConfig) (*config.AppConfig, *nacos.Watcher, error) {
	client, err := nacos.NewConfigClient(nacosConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	base := cfg
	w := nacos.NewWatcher(client, cfg.Nacos.DataID, cfg.Nacos.Group, func(data string) {
		next, err := config.Overlay(base, []byte(data))
		if err != nil {
			logger.Warn("[Nacos] ignore invalid config", zap.Error(err))
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			logger.Warn("[Nacos] set log level", zap.Error(err))
			return
		}
		logger.Info("[Nacos] log level reloaded", zap.String("level", next.Log.Level))
	}, logger.Named("nacos"))

	data, err := w.Fetch()
	if err != nil {
		return nil, nil, err
	}
	if data != "" {
		if cfg, err = config.Overlay(cfg, []byte(data)); err != nil {
			return nil, nil, err
		}
	}
	if err := w.Start(); err != nil {
		return nil, nil, err
	}
	return cfg, w, nil
}

func registerNode(app *App, cfg *config.AppConfig) error {
	client, err := nacos.NewNamingClient(nacosConfig(cfg))
	if err != nil {
		return err
	}
	return app.Register(client)
}
