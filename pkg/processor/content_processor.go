// Package processor wires the ingestion and merge pipelines: content records
// arriving over Kafka are scored against the catalog, and duplicate groups are
// swept on an interval.
package processor

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ContentProcessor scores incoming content records and emits suggestion
// events. It is the kafka consumer handler for the input topic.
type ContentProcessor struct {
	logger  ectologger.Logger
	matcher *matching.Service
	emitter *events.Emitter
}

// NewContentProcessor creates a new content processor
func NewContentProcessor(logger ectologger.Logger, matcher *matching.Service, emitter *events.Emitter) *ContentProcessor {
	return &ContentProcessor{
		logger:  logger,
		matcher: matcher,
		emitter: emitter,
	}
}

// HandleMessage processes one incoming message: a single content record or a
// batch of records for one owner scope. Returning an error leaves the message
// uncommitted for redelivery.
func (p *ContentProcessor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ContentProcessor.HandleMessage")
	defer span.End()

	if msg.IsBatch() {
		batch, err := msg.ParseBatch()
		if err != nil {
			// Malformed payloads never become parseable; log and drop.
			p.logger.WithContext(ctx).WithError(err).Error("Dropping unparseable content batch")
			return nil
		}
		return p.processBatch(ctx, batch.OwnerScopeID, batch.Records)
	}

	record, err := msg.ParseContentRecord()
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Dropping unparseable content record")
		return nil
	}
	return p.processBatch(ctx, record.OwnerScopeID, []models.ContentRecord{*record})
}

func (p *ContentProcessor) processBatch(ctx context.Context, ownerScopeID string, records []models.ContentRecord) error {
	if ownerScopeID == "" {
		p.logger.WithContext(ctx).Error("Dropping content without an owner scope")
		return nil
	}

	valid := records[:0]
	for _, record := range records {
		if record.ID == "" || record.Text == "" {
			p.logger.WithContext(ctx).WithFields(map[string]any{
				"content_id": record.ID,
			}).Warn("Skipping content record missing id or text")
			continue
		}
		record.OwnerScopeID = ownerScopeID
		valid = append(valid, record)
	}
	if len(valid) == 0 {
		return nil
	}

	report, err := p.matcher.SuggestBatch(ctx, ownerScopeID, valid)
	if err != nil {
		return fmt.Errorf("suggest batch: %w", err)
	}

	p.emitter.EmitSuggestions(ctx, report)
	return nil
}
