package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
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

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
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

// SuggestionEvent is emitted when a content record has been scored against
// the catalog.
type SuggestionEvent struct {
	EventType    string                  `json:"event_type"` // suggestions.computed
	OwnerScopeID string                  `json:"owner_scope_id"`
	ContentID    string                  `json:"content_id"`
	Suggestions  []models.MatchSuggestion `json:"suggestions"`
	Timestamp    time.Time               `json:"timestamp"`
}

// MergeEvent is emitted when a duplicate group reaches a terminal state.
type MergeEvent struct {
	EventType    string           `json:"event_type"` // group.merged, group.aborted
	OwnerScopeID string           `json:"owner_scope_id"`
	Plan         models.MergePlan `json:"plan"`
	Timestamp    time.Time        `json:"timestamp"`
}

// PublishSuggestionEvent publishes a suggestion event, keyed by content id so
// events for one record stay ordered.
func (p *Producer) PublishSuggestionEvent(ctx context.Context, event *SuggestionEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishSuggestionEvent")
	defer span.End()

	if event.EventType == "" {
		event.EventType = "suggestions.computed"
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.ContentID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "owner_scope_id", Value: []byte(event.OwnerScopeID)},
		},
	}
	if tp := tracing.GetTraceParent(ctx); tp != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "traceparent", Value: []byte(tp)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"content_id": event.ContentID,
		}).Error("Failed to publish suggestion event")
		return err
	}

	return nil
}

// PublishMergeEvent publishes a merge event, keyed by group key.
func (p *Producer) PublishMergeEvent(ctx context.Context, event *MergeEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishMergeEvent")
	defer span.End()

	if event.EventType == "" {
		event.EventType = "group.merged"
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.Plan.GroupKey),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "owner_scope_id", Value: []byte(event.OwnerScopeID)},
		},
	}
	if tp := tracing.GetTraceParent(ctx); tp != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "traceparent", Value: []byte(tp)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"group_key": event.Plan.GroupKey,
		}).Error("Failed to publish merge event")
		return err
	}

	return nil
}
