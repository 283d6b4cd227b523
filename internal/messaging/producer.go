package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// KafkaPublisher publishes ledger events as JSON, keyed so events for one
// owner stay on one partition.
type KafkaPublisher struct {
	Producer sarama.SyncProducer
	Log      *logrus.Entry
}

func NewKafkaPublisher(brokers []string, clientID string, log *logrus.Entry) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{Producer: producer, Log: log}, nil
}

func (p *KafkaPublisher) Publish(_ context.Context, topic, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.Log.WithError(err).WithField("topic", topic).Error("failed to marshal event")
		return err
	}

	partition, offset, err := p.Producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		p.Log.WithError(err).WithField("topic", topic).Error("error send message")
		return err
	}

	p.Log.WithFields(logrus.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.Producer.Close()
}

// NoopPublisher drops events. Used when no brokers are configured.
type NoopPublisher struct {
	Log *logrus.Entry
}

func (p NoopPublisher) Publish(_ context.Context, topic, key string, _ interface{}) error {
	if p.Log != nil {
		p.Log.WithFields(logrus.Fields{"topic": topic, "key": key}).Debug("event publishing disabled")
	}
	return nil
}
