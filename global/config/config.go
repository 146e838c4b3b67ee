package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"DreamsChat/tools/errs"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "DREAMS"

var validate = validator.New()

// Default 单机可直接跑起来的配置：内存存储 + 静态 token
func Default() *AppConfig {
	return &AppConfig{
		Node: NodeConfig{ID: "gateway-1", IDNode: 1},
		HTTP: HTTPConfig{Addr: ":8080", ShutdownWait: 10 * time.Second},
		Log:  LogConfig{Level: "info"},
		Session: SessionConfig{
			WorldID:      1,
			HistoryLimit: 50,
		},
		Store:    StoreConfig{Driver: StoreMemory},
		Auth:     AuthConfig{Resolvers: []string{TokenStatic}, JWTAlg: "HS256"},
		Redis:    RedisConfig{Addr: "127.0.0.1:6379"},
		Bus:      BusConfig{Driver: BusNone, Queue: 1024, Timeout: 3 * time.Second},
		Presence: PresenceConfig{TTL: 2 * time.Hour},
		Nacos:    NacosConfig{Group: "DEFAULT_GROUP", Namespace: "public", TimeoutMs: 5000},
		Metrics:  MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// Load 默认值 -> yaml 文件 -> .env -> DREAMS_* 环境变量，最后校验
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.WrapMsg(err, "read config", "path", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errs.WrapMsg(err, "parse config", "path", path)
		}
	}
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errs.WrapMsg(err, "env overlay")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay 在当前配置上叠加一份远端 yaml（nacos），环境变量仍然优先
func Overlay(base *AppConfig, data []byte) (*AppConfig, error) {
	cfg := *base
	// yaml.v3 解到已有 map 时会原地修改，先拷贝
	cfg.Auth.Static = lo.Assign(base.Auth.Static)
	cfg.Auth.Members = lo.Assign(base.Auth.Members)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.WrapMsg(err, "parse remote config")
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errs.WrapMsg(err, "env overlay")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// .env 可选
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return errs.WrapMsg(err, "load .env")
}

func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errs.ErrArgs.WrapMsg("invalid config", "err", err.Error())
	}
	var problems []string
	need := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch c.Store.Driver {
	case StorePostgres:
		need(c.Postgres.DSN != "", "store.driver=postgres requires postgres.dsn")
	case StoreMongo:
		need(c.Mongo.URI != "" || len(c.Mongo.Address) > 0, "store.driver=mongo requires mongo.uri or mongo.address")
		need(c.Mongo.Database != "", "store.driver=mongo requires mongo.database")
	case StoreBadger:
		need(c.Badger.Dir != "" || c.Badger.InMemory, "store.driver=badger requires badger.dir or badger.in_memory")
	}
	for _, r := range c.Auth.Resolvers {
		switch r {
		case TokenJWT:
			need(c.Auth.JWTSecret != "", "auth resolver jwt requires auth.jwt_secret")
		case TokenPostgres:
			need(c.Postgres.DSN != "", "auth resolver postgres requires postgres.dsn")
		}
	}
	switch c.Bus.Driver {
	case BusNats:
		need(len(c.Bus.Nats.Servers) > 0, "bus.driver=nats requires bus.nats.servers")
	case BusKafka:
		need(len(c.Bus.Kafka.Brokers) > 0, "bus.driver=kafka requires bus.kafka.brokers")
	}

	if len(problems) > 0 {
		return errs.ErrArgs.WrapMsg("invalid config", "err", strings.Join(problems, "; "))
	}
	return nil
}

// NeedsRedis token 或在线状态用到 redis 时才建连
func (c *AppConfig) NeedsRedis() bool {
	if c.Presence.Enabled {
		return true
	}
	for _, r := range c.Auth.Resolvers {
		if r == TokenRedis {
			return true
		}
	}
	return false
}

func (c *AppConfig) NeedsPostgres() bool {
	if c.Store.Driver == StorePostgres {
		return true
	}
	for _, r := range c.Auth.Resolvers {
		if r == TokenPostgres {
			return true
		}
	}
	return false
}

func (c *AppConfig) String() string {
	return fmt.Sprintf("node=%s http=%s store=%s bus=%s resolvers=%v",
		c.Node.ID, c.HTTP.Addr, c.Store.Driver, c.Bus.Driver, c.Auth.Resolvers)
}
