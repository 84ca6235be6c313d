package kafka

import (
	"context"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	kafkago "github.com/segmentio/kafka-go"
)

const clientID = "notify-service"

// DeadLetterPublisher parks a record the consumer could not use.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, msg kafkago.Message, reason string) error
}

func newProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = clientID
	config.Producer.MaxMessageBytes = 1000000
	return config
}

// DeadLetterProducer writes rejected records, unchanged, to a dedicated topic with the
// rejection reason and origin in headers.
type DeadLetterProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewDeadLetterProducer(brokers []string, topic string) (*DeadLetterProducer, error) {
	producer, err := sarama.NewSyncProducer(brokers, newProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create dead letter producer: %w", err)
	}
	return NewDeadLetterProducerWith(producer, topic), nil
}

func NewDeadLetterProducerWith(producer sarama.SyncProducer, topic string) *DeadLetterProducer {
	return &DeadLetterProducer{producer: producer, topic: topic}
}

func (p *DeadLetterProducer) Publish(_ context.Context, msg kafkago.Message, reason string) error {
	out := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(msg.Value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("x-dead-letter-reason"), Value: []byte(reason)},
			{Key: []byte("x-original-topic"), Value: []byte(msg.Topic)},
			{Key: []byte("x-original-partition"), Value: []byte(strconv.Itoa(msg.Partition))},
			{Key: []byte("x-original-offset"), Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		},
	}
	if len(msg.Key) > 0 {
		out.Key = sarama.ByteEncoder(msg.Key)
	}

	if _, _, err := p.producer.SendMessage(out); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *DeadLetterProducer) Close() error {
	return p.producer.Close()
}
