// Package events emits pipeline results as Kafka events.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	EventTypeSuggestionsComputed = "suggestions.computed"
	EventTypeGroupMerged         = "group.merged"
	EventTypeGroupAborted        = "group.aborted"
)

// Emitter publishes suggestion and merge events. A nil Emitter is valid and
// emits nothing, so the pipeline runs without Kafka configured.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitSuggestions emits one event per scored record in the report. Emission
// failures are logged but do not fail the pipeline; events are advisory.
func (e *Emitter) EmitSuggestions(ctx context.Context, report *models.MatchReport) {
	if e == nil || e.producer == nil {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSuggestions")
	defer span.End()

	for i := range report.Records {
		record := &report.Records[i]
		if len(record.Suggestions) == 0 {
			continue
		}

		event := &kafka.SuggestionEvent{
			EventType:    EventTypeSuggestionsComputed,
			OwnerScopeID: report.OwnerScopeID,
			ContentID:    record.ContentID,
			Suggestions:  record.Suggestions,
		}
		if err := e.producer.PublishSuggestionEvent(ctx, event); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"content_id": record.ContentID,
			}).Error("Failed to emit suggestions event")
		}
	}
}

// EmitMergePlan emits the terminal state of one merged group.
func (e *Emitter) EmitMergePlan(ctx context.Context, ownerScopeID string, plan *models.MergePlan) {
	if e == nil || e.producer == nil {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMergePlan")
	defer span.End()

	eventType := EventTypeGroupMerged
	if plan.State == models.MergeStateAborted {
		eventType = EventTypeGroupAborted
	}

	event := &kafka.MergeEvent{
		EventType:    eventType,
		OwnerScopeID: ownerScopeID,
		Plan:         *plan,
	}
	if err := e.producer.PublishMergeEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"group_key": plan.GroupKey,
		}).Error("Failed to emit merge event")
	}
}
