package kafka

import (
	"errors"

	"github.com/Shopify/sarama"
	"github.com/golang/glog"
)

// NewSyncProducer 连接集群；按需先建 topic
func NewSyncProducer(c KafkaConfig) (sarama.SyncProducer, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers missing")
	}
	c.norm()
	cfg, err := BuildBaseConfig(c)
	if err != nil {
		return nil, err
	}
	client, err := sarama.NewClient(c.Brokers, cfg)
	if err != nil {
		return nil, err
	}
	if c.EnsureTopic {
		admin, err := sarama.NewClusterAdminFromClient(client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		// admin 与 client 共用连接，这里不关闭 admin
		if err := EnsureTopic(admin, c.Topic, c.Partitions, c.ReplicationFactor); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	p, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	glog.Infof("[Kafka] producer ready brokers=%v topic=%s", c.Brokers, c.Topic)
	return &ownedProducer{SyncProducer: p, client: client}, nil
}

// ownedProducer 关闭 producer 时一并关闭底层 client
type ownedProducer struct {
	sarama.SyncProducer
	client sarama.Client
}

func (p *ownedProducer) Close() error {
	err := p.SyncProducer.Close()
	if cerr := p.client.Close(); err == nil {
		err = cerr
	}
	return err
}
