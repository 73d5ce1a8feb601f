package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// SyncProducer publishes to one topic through a sarama SyncProducer,
// waiting for every in-sync replica.
type SyncProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewSaramaConfig is the producer configuration used by NewSyncProducer.
func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func NewSyncProducer(brokers []string, topic string) (*SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, errors.Wrap(err, "sarama producer")
	}
	return WrapSyncProducer(producer, topic), nil
}

// WrapSyncProducer adapts an existing producer, e.g. a sarama mock.
func WrapSyncProducer(producer sarama.SyncProducer, topic string) *SyncProducer {
	return &SyncProducer{producer: producer, topic: topic}
}

// Send ignores ctx: sarama's sync producer has its own timeouts.
func (p *SyncProducer) Send(_ context.Context, key, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	_, _, err := p.producer.SendMessage(msg)
	return errors.Wrapf(err, "sarama send to %s", p.topic)
}

func (p *SyncProducer) Close() error {
	return p.producer.Close()
}
