package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBatch(t *testing.T) {
	t.Run("TypeHeaderWins", func(t *testing.T) {
		msg := &IncomingMessage{
			Headers: map[string]string{"type": "content.batch"},
			Value:   []byte(`{}`),
		}
		assert.True(t, msg.IsBatch())

		msg.Headers["type"] = "content.record"
		assert.False(t, msg.IsBatch())
	})

	t.Run("BodyShapeFallback", func(t *testing.T) {
		msg := &IncomingMessage{
			Headers: map[string]string{},
			Value:   []byte(`{"owner_scope_id":"creator-1","records":[{"id":"vid-1","text":"hello"}]}`),
		}
		assert.True(t, msg.IsBatch())

		msg.Value = []byte(`{"id":"vid-1","text":"hello","owner_scope_id":"creator-1"}`)
		assert.False(t, msg.IsBatch())
	})
}

func TestParseBatch(t *testing.T) {
	msg := &IncomingMessage{
		Headers: map[string]string{"owner_scope_id": "creator-1"},
		Value:   []byte(`{"records":[{"id":"vid-1","text":"hello"},{"id":"vid-2","text":"world"}]}`),
	}

	batch, err := msg.ParseBatch()
	require.NoError(t, err)

	// owner scope missing from the body falls back to the header
	assert.Equal(t, "creator-1", batch.OwnerScopeID)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, "vid-1", batch.Records[0].ID)
}

func TestParseContentRecord(t *testing.T) {
	t.Run("FallbacksFromEnvelope", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:     "vid-1",
			Headers: map[string]string{"owner_scope_id": "creator-1"},
			Value:   []byte(`{"text":"lunch at Sushiro"}`),
		}

		record, err := msg.ParseContentRecord()
		require.NoError(t, err)
		assert.Equal(t, "vid-1", record.ID)
		assert.Equal(t, "creator-1", record.OwnerScopeID)
		assert.Equal(t, "lunch at Sushiro", record.Text)
	})

	t.Run("BodyTakesPrecedence", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:     "key-ignored",
			Headers: map[string]string{"owner_scope_id": "header-ignored"},
			Value:   []byte(`{"id":"vid-9","text":"hi","owner_scope_id":"creator-9"}`),
		}

		record, err := msg.ParseContentRecord()
		require.NoError(t, err)
		assert.Equal(t, "vid-9", record.ID)
		assert.Equal(t, "creator-9", record.OwnerScopeID)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`not json`)}
		_, err := msg.ParseContentRecord()
		assert.Error(t, err)
	})
}
