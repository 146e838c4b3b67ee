package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

// KafkaConfig 事件总线 Kafka 配置
type KafkaConfig struct {
	Brokers             []string
	Topic               string // 默认 im.events
	Version             string // 例如 2.1.0
	ProducerRetries     int
	ProducerCompression string // none/snappy/lz4/zstd
	Partitions          int32
	ReplicationFactor   int16
	EnsureTopic         bool
}

func (c *KafkaConfig) norm() {
	if c.Topic == "" {
		c.Topic = "im.events"
	}
	if c.ProducerRetries <= 0 {
		c.ProducerRetries = 3
	}
	if c.Partitions <= 0 {
		c.Partitions = 8
	}
	if c.ReplicationFactor <= 0 {
		c.ReplicationFactor = 1
	}
}

// BuildBaseConfig 生产者配置：会话 id 做 key，Hash 分区保证同一会话有序
func BuildBaseConfig(c KafkaConfig) (*sarama.Config, error) {
	c.norm()
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	if c.Version != "" {
		v, err := sarama.ParseKafkaVersion(c.Version)
		if err != nil {
			return nil, err
		}
		cfg.Version = v
	}

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = c.ProducerRetries
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(c.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg, nil
}
