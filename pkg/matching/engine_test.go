package matching

import (
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/scoring"
)

func testEngine() *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEngine(logger, scoring.NewDefaultScorer(), DefaultConfig())
}

func strPtr(s string) *string {
	return &s
}

func TestSuggest_NameMatchOnly(t *testing.T) {
	engine := testEngine()

	record := &models.ContentRecord{
		ID:           "c1",
		Text:         "Lunch at Sushiro Shibuya today",
		OwnerScopeID: "scope-1",
	}
	candidates := []models.ReferenceEntity{
		{ID: "e1", Name: "Sushiro", Category: models.EntityCategoryLocation},
		{ID: "e2", Name: "Golden Gai Bar", Category: models.EntityCategoryLocation},
	}

	suggestions := engine.Suggest(record, candidates)

	require.Len(t, suggestions, 1)
	assert.Equal(t, "e1", suggestions[0].EntityID)
	assert.GreaterOrEqual(t, suggestions[0].Confidence, 0.9)
	assert.NotEmpty(t, suggestions[0].Reasons)
}

func TestSuggest_NoOverlapIsEmptyNotError(t *testing.T) {
	engine := testEngine()

	record := &models.ContentRecord{
		ID:           "c1",
		Text:         "thoughts about nothing in particular",
		OwnerScopeID: "scope-1",
	}
	candidates := []models.ReferenceEntity{
		{ID: "e1", Name: "Sushiro", Category: models.EntityCategoryLocation},
		{ID: "e2", Name: "Shibuya Park", Category: models.EntityCategoryLocation},
	}

	suggestions := engine.Suggest(record, candidates)
	assert.Empty(t, suggestions)
}

func TestSuggest_NameTokenOverlapStillSuggests(t *testing.T) {
	engine := testEngine()

	// "Shibuya" is a token of the second candidate's name, so it scores above
	// the cutoff and is surfaced behind the exact match rather than dropped
	record := &models.ContentRecord{
		ID:           "c1",
		Text:         "Dinner at Sushiro in Shibuya",
		OwnerScopeID: "scope-1",
	}
	candidates := []models.ReferenceEntity{
		{ID: "e1", Name: "Sushiro", Category: models.EntityCategoryLocation},
		{ID: "e2", Name: "Shibuya Park", Category: models.EntityCategoryLocation},
	}

	suggestions := engine.Suggest(record, candidates)

	require.Len(t, suggestions, 2)
	assert.Equal(t, "e1", suggestions[0].EntityID)
	assert.InDelta(t, 1.0, suggestions[0].Confidence, 0.001)
	assert.Equal(t, "e2", suggestions[1].EntityID)
	assert.InDelta(t, 0.65, suggestions[1].Confidence, 0.001)
}

func TestSuggest_NeverBelowCutoff(t *testing.T) {
	engine := testEngine()

	record := &models.ContentRecord{
		ID:           "c1",
		Text:         "went to the park with friends",
		OwnerScopeID: "scope-1",
	}
	// only weak signals fire for these: category keyword + context bonus
	candidates := []models.ReferenceEntity{
		{ID: "e1", Name: "Yoyogi Gyoen", Category: models.EntityCategoryLocation},
		{ID: "e2", Name: "Ueno Zoo", Category: models.EntityCategoryLocation},
	}

	suggestions := engine.Suggest(record, candidates)
	for _, s := range suggestions {
		assert.GreaterOrEqual(t, s.Confidence, DefaultConfig().MinConfidence)
	}
}

func TestSuggest_DeterministicOrdering(t *testing.T) {
	engine := testEngine()

	record := &models.ContentRecord{
		ID:           "c1",
		Text:         "coffee at Blue Bottle then sushi at Sushiro",
		OwnerScopeID: "scope-1",
	}
	candidates := []models.ReferenceEntity{
		{ID: "e3", Name: "Sushiro", Category: models.EntityCategoryLocation},
		{ID: "e1", Name: "Blue Bottle", Category: models.EntityCategoryLocation},
	}
	reversed := []models.ReferenceEntity{candidates[1], candidates[0]}

	first := engine.Suggest(record, candidates)
	second := engine.Suggest(record, reversed)

	require.Len(t, first, 2)
	require.Equal(t, first, second)
	// equal confidence: name ascending wins
	assert.Equal(t, "Blue Bottle", first[0].EntityName)
	assert.Equal(t, "Sushiro", first[1].EntityName)
}

func TestSuggest_TruncatesToTopK(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	engine := NewEngine(logger, scoring.NewDefaultScorer(), Config{
		MinConfidence:  0.3,
		MaxSuggestions: 2,
	})

	record := &models.ContentRecord{
		ID:           "c1",
		Text:         "ramen tour: Ichiran then Ippudo then Afuri then Nagi",
		OwnerScopeID: "scope-1",
	}
	candidates := []models.ReferenceEntity{
		{ID: "e1", Name: "Ichiran", Category: models.EntityCategoryLocation},
		{ID: "e2", Name: "Ippudo", Category: models.EntityCategoryLocation},
		{ID: "e3", Name: "Afuri", Category: models.EntityCategoryLocation},
		{ID: "e4", Name: "Nagi", Category: models.EntityCategoryLocation},
	}

	suggestions := engine.Suggest(record, candidates)
	assert.Len(t, suggestions, 2)
}

func TestSuggest_RicherEntityRanksHigher(t *testing.T) {
	engine := testEngine()

	record := &models.ContentRecord{
		ID:           "c1",
		Text:         "visited Sushiro in Shibuya for conveyor belt sushi",
		OwnerScopeID: "scope-1",
	}
	candidates := []models.ReferenceEntity{
		{ID: "e1", Name: "Sushiro", Category: models.EntityCategoryLocation},
		{
			ID:       "e2",
			Name:     "Sushiro Shibuya",
			Category: models.EntityCategoryLocation,
			Address:  strPtr("Shibuya, Tokyo"),
			Tags:     models.StringList{"sushi"},
		},
	}

	suggestions := engine.Suggest(record, candidates)
	require.Len(t, suggestions, 2)
	// both clamp near 1.0 or the richer one leads; order must favor e2 only
	// if it scored strictly higher, otherwise name ordering applies
	assert.GreaterOrEqual(t, suggestions[0].Confidence, suggestions[1].Confidence)
}
