// Package kafka handles content record ingestion and event emission.
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// ContentBatchMessage is a batch of content records for one owner scope.
type ContentBatchMessage struct {
	OwnerScopeID string                 `json:"owner_scope_id"`
	Records      []models.ContentRecord `json:"records"`
}

// IsBatch reports whether the message is a content batch. Producers set the
// type header; the body shape is the fallback for producers that do not.
func (m *IncomingMessage) IsBatch() bool {
	if t := m.Headers["type"]; t != "" {
		return t == "content.batch"
	}

	var batch ContentBatchMessage
	if err := json.Unmarshal(m.Value, &batch); err != nil {
		return false
	}
	return len(batch.Records) > 0
}

// ParseBatch parses the message value as a content batch.
func (m *IncomingMessage) ParseBatch() (*ContentBatchMessage, error) {
	var batch ContentBatchMessage
	if err := json.Unmarshal(m.Value, &batch); err != nil {
		return nil, fmt.Errorf("parse content batch: %w", err)
	}
	if batch.OwnerScopeID == "" {
		batch.OwnerScopeID = m.Headers["owner_scope_id"]
	}
	return &batch, nil
}

// ParseContentRecord parses the message value as a single content record.
// The owner scope falls back to the message header, the record id to the
// message key.
func (m *IncomingMessage) ParseContentRecord() (*models.ContentRecord, error) {
	var record models.ContentRecord
	if err := json.Unmarshal(m.Value, &record); err != nil {
		return nil, fmt.Errorf("parse content record: %w", err)
	}
	if record.OwnerScopeID == "" {
		record.OwnerScopeID = m.Headers["owner_scope_id"]
	}
	if record.ID == "" {
		record.ID = m.Key
	}
	return &record, nil
}
