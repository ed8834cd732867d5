package merging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func strPtr(s string) *string {
	return &s
}

func TestCompletenessScore_AllFields(t *testing.T) {
	entity := &models.ReferenceEntity{
		ID:            "e1",
		Name:          "Sushiro Shibuya",
		ExternalLinks: models.StringList{"https://example.com/sushiro"},
		Address:       strPtr("2-29-11 Dogenzaka, Shibuya"),
		Phone:         strPtr("+81-3-1234-5678"),
		Hours:         strPtr("11:00-23:00"),
		Brand:         strPtr("Sushiro"),
		Description:   strPtr("Conveyor belt sushi"),
	}

	// 10 + 8 + 6 + 4 + 3 + 2 + 5
	assert.Equal(t, 38, CompletenessScore(entity, 5))
}

func TestCompletenessScore_BareEntityCountsRelationsOnly(t *testing.T) {
	entity := &models.ReferenceEntity{ID: "e1", Name: "Sushiro"}

	assert.Equal(t, 0, CompletenessScore(entity, 0))
	assert.Equal(t, 3, CompletenessScore(entity, 3))
}

func TestCompletenessScore_EmptyStringsDoNotCount(t *testing.T) {
	entity := &models.ReferenceEntity{
		ID:          "e1",
		Name:        "Sushiro",
		Phone:       strPtr("   "),
		Brand:       strPtr(""),
		Description: strPtr(""),
	}

	assert.Equal(t, 0, CompletenessScore(entity, 0))
}

func TestHasDetailedAddress(t *testing.T) {
	tests := []struct {
		name     string
		address  *string
		expected bool
	}{
		{name: "nil", address: nil, expected: false},
		{name: "empty", address: strPtr(""), expected: false},
		{name: "whitespace", address: strPtr("   "), expected: false},
		{name: "bare city", address: strPtr("Tokyo"), expected: false},
		{name: "bare city cased", address: strPtr("TOKYO"), expected: false},
		{name: "placeholder", address: strPtr("unknown"), expected: false},
		{name: "placeholder n/a", address: strPtr("N/A"), expected: false},
		{name: "single token no digit", address: strPtr("Shibuya"), expected: false},
		{name: "street with number", address: strPtr("2-29-11 Dogenzaka"), expected: true},
		{name: "multi token", address: strPtr("Dogenzaka Shibuya Tokyo"), expected: true},
		{name: "single token with digit", address: strPtr("Dogenzaka2"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity := &models.ReferenceEntity{Address: tt.address}
			assert.Equal(t, tt.expected, HasDetailedAddress(entity))
		})
	}
}
