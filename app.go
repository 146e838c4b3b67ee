package main

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"DreamsChat/global/config"
	"DreamsChat/logger"
	"DreamsChat/middleware"
	"DreamsChat/module/chat/message"
	"DreamsChat/service/auth"
	"DreamsChat/service/chat"
	"DreamsChat/service/events"
	"DreamsChat/service/health"
	"DreamsChat/service/kafka"
	"DreamsChat/service/metrics"
	"DreamsChat/service/nacos"
	"DreamsChat/service/natsx"
	"DreamsChat/service/storage/kv"
	"DreamsChat/service/storage/memory"
	"DreamsChat/service/storage/mgo"
	"DreamsChat/service/storage/pg"
	rstore "DreamsChat/service/storage/redis"
	"DreamsChat/tools/ids"
	"DreamsChat/tools/security"

	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// store 网关需要的存储能力：消息日志 + 成员关系
type store interface {
	chat.MessageStore
	chat.MembershipOracle
}

// App 一个网关节点的全部组件；Close 逆序释放
type App struct {
	cfg      *config.AppConfig
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	store   store
	tokens  chat.TokenResolver
	members chat.MembershipOracle
	bus     *events.Dispatcher
	chat    *chat.Server
	history *message.HistoryHandler
	health  *health.Server

	registrar *nacos.Registrar
	closers   []func() error
}

// Boot 按配置建连并组装网关；任一步失败都会释放已建立的资源
func Boot(ctx context.Context, cfg *config.AppConfig) (app *App, err error) {
	ids.SetNodeID(cfg.Node.IDNode)
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}

	app = &App{cfg: cfg, log: logger.Named("boot")}
	defer func() {
		if err != nil {
			app.Close(context.Background())
			app = nil
		}
	}()

	if cfg.Metrics.Enabled {
		app.registry = prometheus.NewRegistry()
		app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		app.metrics = metrics.New(app.registry)
	}

	var rdb *rstore.Manager
	if cfg.NeedsRedis() {
		rdb, err = rstore.NewManager(ctx, rstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
		app.onClose(rdb.Close)
	}

	var pgStore *pg.Store
	if cfg.NeedsPostgres() {
		if pgStore, err = app.openPostgres(ctx); err != nil {
			return nil, err
		}
	}

	if err = app.openStore(ctx, pgStore); err != nil {
		return nil, err
	}
	app.members = auth.NewWorldOracle(app.store, cfg.Session.WorldID)

	if app.tokens, err = app.buildResolvers(rdb, pgStore); err != nil {
		return nil, err
	}

	var presence chat.Presence
	if cfg.Presence.Enabled {
		presence = rstore.NewPresence(rdb.Client(), cfg.Node.ID)
	}

	var publisher chat.EventPublisher
	if cfg.Bus.Driver != config.BusNone {
		if app.bus, err = app.openBus(); err != nil {
			return nil, err
		}
		publisher = app.bus
	}

	app.chat, err = chat.NewServer(chat.Options{
		Node:     cfg.Node.ID,
		Tokens:   app.tokens,
		Members:  app.members,
		Store:    app.store,
		Events:   publisher,
		Presence: presence,
		Metrics:  app.metrics,
		Logger:   logger.Named("ws"),
		Conf: chat.Conf{
			HandshakeTimeout:  cfg.Session.HandshakeTimeout,
			PingPeriod:        cfg.Session.PingPeriod,
			PongWait:          cfg.Session.PongWait,
			WriteWait:         cfg.Session.WriteWait,
			SendQueue:         cfg.Session.SendQueue,
			MaxFrameBytes:     cfg.Session.MaxFrameBytes,
			StoreTimeout:      cfg.Session.StoreTimeout,
			RecheckMembership: cfg.Session.RecheckMembership,
			PresenceTTL:       cfg.Presence.TTL,
		},
		CheckOrigin: middleware.OriginAllowed(cfg.HTTP.AllowedOrigins),
	})
	if err != nil {
		return nil, err
	}
	app.history = message.NewHistoryHandler(app.store, app.members, cfg.Session.HistoryLimit, cfg.Session.StoreTimeout)

	if cfg.GRPC.Addr != "" {
		if app.health, err = health.Listen(cfg.GRPC.Addr); err != nil {
			return nil, err
		}
	}

	app.log.Info("[Boot] gateway assembled", zap.Stringer("config", cfg))
	return app, nil
}

func (a *App) onClose(f func() error) { a.closers = append(a.closers, f) }

func (a *App) openPostgres(ctx context.Context) (*pg.Store, error) {
	pool, err := pg.NewPool(ctx, pg.Config{DSN: a.cfg.Postgres.DSN, MaxConns: a.cfg.Postgres.MaxConns})
	if err != nil {
		return nil, err
	}
	a.onClose(func() error { pool.Close(); return nil })
	if a.cfg.Postgres.Migrate {
		if err := pg.Migrate(ctx, pool); err != nil {
			return nil, err
		}
	}
	return pg.NewStore(pool, ids.NewGenerator(a.cfg.Node.IDNode)), nil
}

// openStore memory/badger 按配置预置成员；postgres/mongo 以库里的数据为准
func (a *App) openStore(ctx context.Context, pgStore *pg.Store) error {
	cfg := a.cfg
	switch cfg.Store.Driver {
	case config.StoreMemory:
		s := memory.New(cfg.Node.IDNode)
		for conv, uids := range cfg.Auth.Members {
			for _, uid := range uids {
				s.AddMember(conv, uid, "member")
			}
		}
		a.store = s

	case config.StoreBadger:
		s, err := kv.Open(kv.Config{Dir: cfg.Badger.Dir, InMemory: cfg.Badger.InMemory}, ids.NewGenerator(cfg.Node.IDNode))
		if err != nil {
			return err
		}
		a.onClose(s.Close)
		for conv, uids := range cfg.Auth.Members {
			for _, uid := range uids {
				if err := s.AddMember(conv, uid, "member"); err != nil {
					return err
				}
			}
		}
		a.store = s

	case config.StorePostgres:
		a.store = pgStore

	case config.StoreMongo:
		mc := &mgo.Config{
			Uri:         cfg.Mongo.URI,
			Address:     cfg.Mongo.Address,
			Database:    cfg.Mongo.Database,
			Username:    cfg.Mongo.Username,
			Password:    cfg.Mongo.Password,
			AuthSource:  cfg.Mongo.AuthSource,
			MaxPoolSize: cfg.Mongo.MaxPoolSize,
		}
		client, err := mgo.Connect(ctx, mc)
		if err != nil {
			return err
		}
		a.onClose(func() error { return client.Disconnect(context.Background()) })
		s := mgo.NewStore(client.Database(mc.Database), ids.NewGenerator(cfg.Node.IDNode))
		if err := s.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.store = s

	default:
		return errors.New("unknown store driver " + cfg.Store.Driver)
	}
	return nil
}

// buildResolvers 按 auth.resolvers 的顺序组成解析链
func (a *App) buildResolvers(rdb *rstore.Manager, pgStore *pg.Store) (auth.Chain, error) {
	cfg := a.cfg
	chain := make(auth.Chain, 0, len(cfg.Auth.Resolvers))
	for _, name := range cfg.Auth.Resolvers {
		switch name {
		case config.TokenStatic:
			static, ok := a.store.(*memory.Store)
			if !ok {
				static = memory.New(cfg.Node.IDNode)
			}
			for token, uid := range cfg.Auth.Static {
				static.AddToken(token, uid)
			}
			chain = append(chain, static)
		case config.TokenJWT:
			opts := security.DefaultOptions([]byte(cfg.Auth.JWTSecret))
			if cfg.Auth.JWTAlg != "" {
				opts.Alg = cfg.Auth.JWTAlg
			}
			chain = append(chain, auth.NewJWTResolver(opts))
		case config.TokenRedis:
			chain = append(chain, rstore.NewTokenStore(rdb.Client()))
		case config.TokenPostgres:
			chain = append(chain, pgStore)
		default:
			return nil, errors.New("unknown token resolver " + name)
		}
	}
	return chain, nil
}

func (a *App) openBus() (*events.Dispatcher, error) {
	cfg := a.cfg.Bus
	var sink events.Sink
	switch cfg.Driver {
	case config.BusNats:
		nc, err := natsx.Connect(natsx.NatsxConfig{
			Servers:       cfg.Nats.Servers,
			Name:          a.cfg.Node.ID,
			User:          cfg.Nats.User,
			Password:      cfg.Nats.Password,
			SubjectPrefix: cfg.Nats.Prefix,
		})
		if err != nil {
			return nil, err
		}
		sink = natsx.NewPublisher(nc, cfg.Nats.Prefix, natsx.WithLogging())
	case config.BusKafka:
		producer, err := kafka.NewSyncProducer(kafka.KafkaConfig{
			Brokers:             cfg.Kafka.Brokers,
			Topic:               cfg.Kafka.Topic,
			Version:             cfg.Kafka.Version,
			ProducerCompression: cfg.Kafka.Compression,
			EnsureTopic:         cfg.Kafka.EnsureTopic,
		})
		if err != nil {
			return nil, err
		}
		sink = kafka.NewPublisher(producer, cfg.Kafka.Topic)
	default:
		return nil, errors.New("unknown bus driver " + cfg.Driver)
	}
	return events.NewDispatcher(sink, cfg.Queue, cfg.Timeout, a.metrics, logger.Named("bus")), nil
}

// Register 把 HTTP 地址注册为 nacos 临时实例，Close 时注销
func (a *App) Register(client naming_client.INamingClient) error {
	host, port, err := splitHostPort(a.cfg.HTTP.Addr)
	if err != nil {
		return err
	}
	a.registrar = nacos.NewRegistrar(client, nacos.Instance{
		ServiceName: health.ServiceName,
		Group:       a.cfg.Nacos.Group,
		IP:          host,
		Port:        port,
		Metadata:    map[string]string{"node": a.cfg.Node.ID},
	})
	return a.registrar.Register()
}

// Close 先让会话收尾（leave 通知会进入总线），再停总线和各个连接
func (a *App) Close(ctx context.Context) {
	if a.health != nil {
		a.health.SetServing(false)
	}
	if a.registrar != nil {
		if err := a.registrar.Deregister(); err != nil {
			a.log.Warn("[Shutdown] nacos deregister", zap.Error(err))
		}
	}
	if a.chat != nil {
		if err := a.chat.Shutdown(ctx); err != nil {
			a.log.Warn("[Shutdown] sessions did not finish", zap.Error(err))
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(ctx); err != nil {
			a.log.Warn("[Shutdown] event bus", zap.Error(err))
		}
	}
	if a.health != nil {
		a.health.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("[Shutdown] close resource", zap.Error(err))
		}
	}
	a.closers = nil
}

func splitHostPort(addr string) (string, uint64, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(p, 10, 16)
	if err != nil {
		return "", 0, err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = outboundIP()
	}
	return host, port, nil
}

// outboundIP 本机出口地址；UDP Dial 不会真正发包
func outboundIP() string {
	conn, err := net.DialTimeout("udp", "8.8.8.8:80", time.Second)
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
