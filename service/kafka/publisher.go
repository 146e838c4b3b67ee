package kafka

import (
	"context"
	"strconv"

	"DreamsChat/service/events"

	"github.com/Shopify/sarama"
)

const (
	HeaderKind  = "dreams-kind"
	HeaderMsgID = "dreams-msg-id"
)

// Publisher 实现 events.Sink；key 为会话 id
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(p sarama.SyncProducer, topic string) *Publisher {
	if topic == "" {
		topic = "im.events"
	}
	return &Publisher{producer: p, topic: topic}
}

func (p *Publisher) buildMessage(ev events.Event, payload []byte) *sarama.ProducerMessage {
	headers := []sarama.RecordHeader{{Key: []byte(HeaderKind), Value: []byte(ev.Kind)}}
	if ev.Kind == events.KindMessage && ev.MessageID != 0 {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte(HeaderMsgID),
			Value: []byte(strconv.FormatInt(ev.MessageID, 10)),
		})
	}
	return &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(ev.Key()),
		Value:     sarama.ByteEncoder(payload),
		Headers:   headers,
		Timestamp: ev.At,
	}
}

// Send SyncProducer 不支持 ctx，只在发送前检查一次
func (p *Publisher) Send(ctx context.Context, ev events.Event, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.producer.SendMessage(p.buildMessage(ev, payload))
	return err
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
