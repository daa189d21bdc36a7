package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// MappingEvent represents a lifecycle event on a mapping
type MappingEvent struct {
	EventType       string                 `json:"event_type"` // mapping.created, mapping.updated, mapping.deleted
	MappingID       string                 `json:"mapping_id"`
	SourceID        string                 `json:"source_id"`
	TargetID        string                 `json:"target_id"`
	ConnectionType  models.ConnectionType  `json:"connection_type,omitempty"`
	ConfidenceLevel models.ConfidenceLevel `json:"confidence_level,omitempty"`
	Actor           string                 `json:"actor"`
	ProposalID      string                 `json:"proposal_id,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// PublishMappingEvent publishes a mapping event to Kafka
func (p *Producer) PublishMappingEvent(ctx context.Context, event *MappingEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishMappingEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.MappingID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source_id", Value: []byte(event.SourceID)},
			{Key: "target_id", Value: []byte(event.TargetID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish mapping event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"mapping_id": event.MappingID,
	}).Debug("Published mapping event")

	return nil
}
