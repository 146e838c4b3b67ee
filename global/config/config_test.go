package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"DreamsChat/tools/errs"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "dreams.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsOnly(t *testing.T) {
	req := require.New(t)
	cfg, err := Load("")
	req.NoError(err)
	req.Equal(StoreMemory, cfg.Store.Driver)
	req.Equal(":8080", cfg.HTTP.Addr)
	req.Equal(int64(1), cfg.Session.WorldID)
	req.False(cfg.NeedsRedis())
}

func TestLoad_FileThenEnv(t *testing.T) {
	req := require.New(t)
	// Given
	path := writeFile(t, `
node:
  id: gw-7
http:
  addr: ":9000"
  allowed_origins: ["https://a.example"]
session:
  pong_wait: 30s
auth:
  resolvers: [jwt, redis]
  jwt_secret: file-secret
  static:
    dev-token: 3
bus:
  driver: nats
  nats:
    servers: ["nats://127.0.0.1:4222"]
`)
	t.Setenv("DREAMS_HTTP_ADDR", ":9100")
	t.Setenv("DREAMS_SESSION_SEND_QUEUE", "64")
	t.Setenv("DREAMS_AUTH_JWT_SECRET", "env-secret")

	// When
	cfg, err := Load(path)

	// Then 环境变量覆盖文件
	req.NoError(err)
	req.Equal("gw-7", cfg.Node.ID)
	req.Equal(":9100", cfg.HTTP.Addr)
	req.Equal([]string{"https://a.example"}, cfg.HTTP.AllowedOrigins)
	req.Equal(30*time.Second, cfg.Session.PongWait)
	req.Equal(64, cfg.Session.SendQueue)
	req.Equal("env-secret", cfg.Auth.JWTSecret)
	req.Equal(int64(3), cfg.Auth.Static["dev-token"])
	req.True(cfg.NeedsRedis())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"bad store driver", func(c *AppConfig) { c.Store.Driver = "sqlite" }},
		{"bad log level", func(c *AppConfig) { c.Log.Level = "loud" }},
		{"no resolvers", func(c *AppConfig) { c.Auth.Resolvers = nil }},
		{"unknown resolver", func(c *AppConfig) { c.Auth.Resolvers = []string{"ldap"} }},
		{"jwt without secret", func(c *AppConfig) { c.Auth.Resolvers = []string{TokenJWT} }},
		{"postgres without dsn", func(c *AppConfig) { c.Store.Driver = StorePostgres }},
		{"mongo without database", func(c *AppConfig) { c.Store.Driver = StoreMongo; c.Mongo.URI = "mongodb://h" }},
		{"badger without dir", func(c *AppConfig) { c.Store.Driver = StoreBadger }},
		{"kafka without brokers", func(c *AppConfig) { c.Bus.Driver = BusKafka }},
		{"nacos without host", func(c *AppConfig) { c.Nacos.Enabled = true }},
		{"node id out of range", func(c *AppConfig) { c.Node.IDNode = 2048 }},
		{"history limit above max", func(c *AppConfig) { c.Session.HistoryLimit = 300 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			require.True(t, errs.ErrArgs.Is(err))
		})
	}
	require.NoError(t, Default().Validate())
}

func TestOverlay(t *testing.T) {
	req := require.New(t)
	base := Default()
	base.Auth.Static = map[string]int64{"a": 1}

	got, err := Overlay(base, []byte("log:\n  level: debug\nauth:\n  static:\n    b: 2\n"))
	req.NoError(err)
	req.Equal("debug", got.Log.Level)
	req.Equal(map[string]int64{"a": 1, "b": 2}, got.Auth.Static)
	// base 不受影响
	req.Equal("info", base.Log.Level)
	req.Equal(map[string]int64{"a": 1}, base.Auth.Static)

	_, err = Overlay(base, []byte("log:\n  level: loud\n"))
	req.Error(err)
}
