package nacos

import (
	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
)

type Config struct {
	Host      string
	Port      uint64
	Namespace string
	Username  string
	Password  string
	TimeoutMs uint64
	LogLevel  string
	CacheDir  string
	LogDir    string
}

func (c Config) params() vo.NacosClientParam {
	if c.TimeoutMs == 0 {
		c.TimeoutMs = 5000
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.CacheDir == "" {
		c.CacheDir = "nacos/cache"
	}
	if c.LogDir == "" {
		c.LogDir = "nacos/log"
	}
	cc := constant.NewClientConfig(
		constant.WithNamespaceId(c.Namespace),
		constant.WithTimeoutMs(c.TimeoutMs),
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogLevel(c.LogLevel),
		constant.WithCacheDir(c.CacheDir),
		constant.WithLogDir(c.LogDir),
		constant.WithUsername(c.Username),
		constant.WithPassword(c.Password),
	)
	return vo.NacosClientParam{
		ClientConfig:  cc,
		ServerConfigs: []constant.ServerConfig{*constant.NewServerConfig(c.Host, c.Port)},
	}
}

func NewConfigClient(c Config) (config_client.IConfigClient, error) {
	return clients.NewConfigClient(c.params())
}

func NewNamingClient(c Config) (naming_client.INamingClient, error) {
	return clients.NewNamingClient(c.params())
}
