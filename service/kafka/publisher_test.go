package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"DreamsChat/service/events"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/require"
)

func TestPublisher_Send(t *testing.T) {
	req := require.New(t)
	// Given
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"kind":"message"}` {
			return errors.New("unexpected payload")
		}
		return nil
	})
	p := NewPublisher(sp, "")

	// When
	err := p.Send(context.Background(), events.Event{Kind: events.KindMessage, ConversationID: 5, MessageID: 11}, []byte(`{"kind":"message"}`))

	// Then
	req.NoError(err)
	req.NoError(p.Close())
}

func TestPublisher_SendFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := NewPublisher(sp, "im.events")

	err := p.Send(context.Background(), events.Event{Kind: events.KindJoin, ConversationID: 5}, nil)

	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestPublisher_CanceledContext(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	p := NewPublisher(sp, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, p.Send(ctx, events.Event{Kind: events.KindJoin}, nil), context.Canceled)
	require.NoError(t, p.Close())
}

func TestPublisher_BuildMessage(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := NewPublisher(nil, "t1")

	msg := p.buildMessage(events.Event{Kind: events.KindMessage, ConversationID: 42, MessageID: 7, At: at}, []byte("x"))

	req.Equal("t1", msg.Topic)
	req.Equal(sarama.StringEncoder("42"), msg.Key)
	req.Equal(at, msg.Timestamp)
	req.Len(msg.Headers, 2)
	req.Equal("message", string(msg.Headers[0].Value))
	req.Equal("7", string(msg.Headers[1].Value))

	leave := p.buildMessage(events.Event{Kind: events.KindLeave, ConversationID: 42}, nil)
	req.Len(leave.Headers, 1)
}

type fakeAdmin struct {
	exists  bool
	created []string
	detail  *sarama.TopicDetail
	err     error
}

func (f *fakeAdmin) DescribeTopics(topics []string) ([]*sarama.TopicMetadata, error) {
	if f.exists {
		return []*sarama.TopicMetadata{{Name: topics[0], Err: sarama.ErrNoError}}, nil
	}
	return []*sarama.TopicMetadata{{Name: topics[0], Err: sarama.ErrUnknownTopicOrPartition}}, nil
}

func (f *fakeAdmin) CreateTopic(topic string, detail *sarama.TopicDetail, _ bool) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, topic)
	f.detail = detail
	return nil
}

func TestEnsureTopic(t *testing.T) {
	req := require.New(t)

	admin := &fakeAdmin{exists: true}
	req.NoError(EnsureTopic(admin, "im.events", 8, 1))
	req.Empty(admin.created)

	admin = &fakeAdmin{}
	req.NoError(EnsureTopic(admin, "im.events", 8, 3))
	req.Equal([]string{"im.events"}, admin.created)
	req.Equal(int32(8), admin.detail.NumPartitions)
	req.Equal("2", *admin.detail.ConfigEntries["min.insync.replicas"])

	admin = &fakeAdmin{err: sarama.ErrTopicAlreadyExists}
	req.NoError(EnsureTopic(admin, "im.events", 8, 1))

	admin = &fakeAdmin{err: sarama.ErrClusterAuthorizationFailed}
	req.Error(EnsureTopic(admin, "im.events", 8, 1))
}

func TestBuildBaseConfig(t *testing.T) {
	req := require.New(t)
	cfg, err := BuildBaseConfig(KafkaConfig{ProducerCompression: "lz4", Version: "2.8.0"})
	req.NoError(err)
	req.Equal(sarama.CompressionLZ4, cfg.Producer.Compression)
	req.True(cfg.Producer.Return.Successes)
	req.Equal(sarama.WaitForAll, cfg.Producer.RequiredAcks)
	req.Equal(sarama.V2_8_0_0, cfg.Version)

	_, err = BuildBaseConfig(KafkaConfig{Version: "not-a-version"})
	req.Error(err)
}
