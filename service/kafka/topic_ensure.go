package kafka

import (
	"errors"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/golang/glog"
)

// topicAdmin sarama.ClusterAdmin 的子集
type topicAdmin interface {
	DescribeTopics(topics []string) ([]*sarama.TopicMetadata, error)
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
}

// EnsureTopic 不存在则创建；已存在不做修改
func EnsureTopic(admin topicAdmin, topic string, partitions int32, rf int16) error {
	descs, err := admin.DescribeTopics([]string{topic})
	if err == nil && len(descs) == 1 && descs[0].Err == sarama.ErrNoError {
		glog.Infof("[Topic] exists: %s (partitions=%d)", topic, len(descs[0].Partitions))
		return nil
	}

	minISR := "1"
	if rf >= 3 {
		minISR = "2"
	}
	td := &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: rf,
		ConfigEntries: map[string]*string{
			"cleanup.policy":                 strPtr("delete"),
			"min.insync.replicas":            strPtr(minISR),
			"unclean.leader.election.enable": strPtr("false"),
		},
	}
	if err := admin.CreateTopic(topic, td, false); err != nil {
		var te *sarama.TopicError
		if errors.Is(err, sarama.ErrTopicAlreadyExists) ||
			(errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists) {
			glog.Infof("[Topic] exists (race): %s", topic)
			return nil
		}
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	glog.Infof("[Topic] created: %s (partitions=%d, rf=%d)", topic, partitions, rf)
	return nil
}

func strPtr(s string) *string { return &s }
