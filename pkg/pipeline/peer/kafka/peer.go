package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/edgeflare/dbrest/pkg/pipeline"
	"github.com/edgeflare/dbrest/pkg/pipeline/cdc"
	"go.uber.org/zap"
)

var errProducerNotInitialized = errors.New("Kafka producer not initialized")

// PeerKafka publishes events to Kafka topics
type PeerKafka struct {
	producer sarama.SyncProducer
	config   Config
	logger   *zap.Logger
}

func (p *PeerKafka) Connect(config json.RawMessage, args ...any) error {
	if err := json.Unmarshal(config, &p.config); err != nil {
		return fmt.Errorf("failed to unmarshal Kafka config: %w", err)
	}
	p.config.setDefaults()
	p.logger = pipeline.LoggerFromArgs(args)

	saramaConfig, err := p.config.ToSaramaConfig()
	if err != nil {
		return err
	}

	producer, err := sarama.NewSyncProducer(p.config.Brokers, saramaConfig)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	p.producer = producer
	return nil
}

// Topic returns the topic an event is published to.
func (p *PeerKafka) Topic(event cdc.Event) string {
	prefix := p.config.TopicPrefix
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return fmt.Sprintf("%s.%s.%s.%s",
		prefix,
		event.Payload.Source.Schema,
		event.Payload.Source.Table,
		event.Payload.Op)
}

func (p *PeerKafka) Pub(event cdc.Event, _ ...any) error {
	if p.producer == nil {
		return errProducerNotInitialized
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal CDC event: %w", err)
	}

	topic := p.Topic(event)
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("op"), Value: []byte(event.Payload.Op)},
			{Key: []byte("table"), Value: []byte(event.Payload.Source.Schema + "." + event.Payload.Source.Table)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	if p.logger != nil {
		p.logger.Debug("published message",
			zap.String("topic", topic),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset))
	}
	return nil
}

func (p *PeerKafka) Disconnect() error {
	if p.producer == nil {
		return nil
	}
	err := p.producer.Close()
	p.producer = nil
	return err
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorKafka, func() pipeline.Connector { return &PeerKafka{} })
}
