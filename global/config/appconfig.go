package config

import "time"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreBadger   = "badger"

	TokenStatic   = "static"
	TokenJWT      = "jwt"
	TokenRedis    = "redis"
	TokenPostgres = "postgres"

	BusNone  = "none"
	BusNats  = "nats"
	BusKafka = "kafka"
)

// AppConfig 网关节点配置：yaml 文件 -> nacos（可选）-> DREAMS_* 环境变量
type AppConfig struct {
	Node     NodeConfig     `yaml:"node"`
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Log      LogConfig      `yaml:"log"`
	Session  SessionConfig  `yaml:"session"`
	Store    StoreConfig    `yaml:"store"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Badger   BadgerConfig   `yaml:"badger"`
	Bus      BusConfig      `yaml:"bus"`
	Presence PresenceConfig `yaml:"presence"`
	Nacos    NacosConfig    `yaml:"nacos"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type NodeConfig struct {
	ID     string `yaml:"id" validate:"required"`
	IDNode int64  `yaml:"id_node" envconfig:"ID_NODE" validate:"gte=0,lte=1023"` // 雪花节点号
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins" split_words:"true"`
	ShutdownWait   time.Duration `yaml:"shutdown_wait" split_words:"true"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"` // 为空时不启动 gRPC 健康检查
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

type SessionConfig struct {
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout" split_words:"true"`
	PingPeriod        time.Duration `yaml:"ping_period" split_words:"true"`
	PongWait          time.Duration `yaml:"pong_wait" split_words:"true"`
	WriteWait         time.Duration `yaml:"write_wait" split_words:"true"`
	SendQueue         int           `yaml:"send_queue" split_words:"true" validate:"gte=0"`
	MaxFrameBytes     int64         `yaml:"max_frame_bytes" split_words:"true" validate:"gte=0"`
	StoreTimeout      time.Duration `yaml:"store_timeout" split_words:"true"`
	RecheckMembership bool          `yaml:"recheck_membership" split_words:"true"`
	WorldID           int64         `yaml:"world_id" split_words:"true" validate:"gte=0"` // 0 关闭世界频道
	HistoryLimit      int           `yaml:"history_limit" split_words:"true" validate:"gte=0,lte=200"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory postgres mongo badger"`
}

type AuthConfig struct {
	// 依次尝试的 token 解析器
	Resolvers []string          `yaml:"resolvers" validate:"min=1,dive,oneof=static jwt redis postgres"`
	JWTSecret string            `yaml:"jwt_secret" split_words:"true"`
	JWTAlg    string            `yaml:"jwt_alg" split_words:"true" validate:"omitempty,oneof=HS256 HS384 HS512"`
	Static    map[string]int64  `yaml:"static" ignored:"true"` // token -> uid，仅用于开发
	Members   map[int64][]int64 `yaml:"members" ignored:"true"` // memory/badger 初始成员：会话 -> uid
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" split_words:"true"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns" split_words:"true"`
	Migrate  bool   `yaml:"migrate"`
}

type MongoConfig struct {
	URI         string   `yaml:"uri"`
	Address     []string `yaml:"address"`
	Database    string   `yaml:"database"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	AuthSource  string   `yaml:"auth_source" split_words:"true"`
	MaxPoolSize int      `yaml:"max_pool_size" split_words:"true"`
}

type BadgerConfig struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"in_memory" split_words:"true"`
}

type BusConfig struct {
	Driver  string        `yaml:"driver" validate:"oneof=none nats kafka"`
	Queue   int           `yaml:"queue" validate:"gte=0"`
	Timeout time.Duration `yaml:"timeout"`
	Nats    NatsConfig    `yaml:"nats"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

type NatsConfig struct {
	Servers  []string `yaml:"servers"`
	Prefix   string   `yaml:"prefix"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	Version     string   `yaml:"version"`
	Compression string   `yaml:"compression" validate:"omitempty,oneof=none snappy lz4 zstd"`
	EnsureTopic bool     `yaml:"ensure_topic" split_words:"true"`
}

type PresenceConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host" validate:"required_if=Enabled true"`
	Port      uint64 `yaml:"port" validate:"required_if=Enabled true"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
	DataID    string `yaml:"data_id" envconfig:"DATA_ID" validate:"required_if=Enabled true"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	TimeoutMs uint64 `yaml:"timeout_ms" split_words:"true"`
	Register  bool   `yaml:"register"` // 把本节点注册为 nacos 服务实例
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
