package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
)

func strPtr(s string) *string {
	return &s
}

func TestScore_ExactNameContainment(t *testing.T) {
	scorer := NewDefaultScorer()

	tests := []struct {
		name string
		text string
	}{
		{name: "verbatim", text: "Lunch at Sushiro Shibuya today"},
		{name: "different case", text: "lunch at SUSHIRO yesterday"},
		{name: "punctuated", text: "Finally tried Sushiro!"},
	}

	entity := &models.ReferenceEntity{
		ID:       "e1",
		Name:     "Sushiro",
		Category: models.EntityCategoryLocation,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confidence, reasons := scorer.Score(normalize.NewDocument(tt.text), entity)
			// text containing the name verbatim always scores at least the
			// exact-name weight
			assert.GreaterOrEqual(t, confidence, 0.9)
			assert.NotEmpty(t, reasons)
		})
	}
}

func TestScore_NoOverlap(t *testing.T) {
	scorer := NewDefaultScorer()
	doc := normalize.NewDocument("completely unrelated rambling")

	entity := &models.ReferenceEntity{
		ID:       "e1",
		Name:     "Sushiro",
		Category: models.EntityCategoryLocation,
		Address:  strPtr("Shibuya, Tokyo"),
		Tags:     models.StringList{"sushi", "conveyor belt"},
	}

	confidence, reasons := scorer.Score(doc, entity)
	assert.Equal(t, 0.0, confidence)
	assert.Empty(t, reasons)
}

func TestScore_MonotonicAcrossSignals(t *testing.T) {
	// adding an independent signal never lowers the score
	scorer := NewDefaultScorer()
	doc := normalize.NewDocument("great sushi near the station")

	base := &models.ReferenceEntity{
		ID:       "e1",
		Name:     "Sushiro",
		Category: models.EntityCategoryLocation,
	}
	withTag := &models.ReferenceEntity{
		ID:       "e1",
		Name:     "Sushiro",
		Category: models.EntityCategoryLocation,
		Tags:     models.StringList{"sushi"},
	}
	withTagAndAddress := &models.ReferenceEntity{
		ID:       "e1",
		Name:     "Sushiro",
		Category: models.EntityCategoryLocation,
		Tags:     models.StringList{"sushi"},
		Address:  strPtr("near Shibuya station"),
	}

	baseScore, _ := scorer.Score(doc, base)
	tagScore, tagReasons := scorer.Score(doc, withTag)
	fullScore, fullReasons := scorer.Score(doc, withTagAndAddress)

	assert.GreaterOrEqual(t, tagScore, baseScore)
	assert.GreaterOrEqual(t, fullScore, tagScore)
	assert.Greater(t, len(fullReasons), len(tagReasons))
}

func TestScore_ClampedToOne(t *testing.T) {
	scorer := NewDefaultScorer()
	doc := normalize.NewDocument("visited the Blue Bottle Coffee cafe in Kiyosumi Tokyo, great coffee")

	entity := &models.ReferenceEntity{
		ID:       "e1",
		Name:     "Blue Bottle Coffee",
		Category: models.EntityCategoryLocation,
		Address:  strPtr("Kiyosumi, Tokyo"),
		Tags:     models.StringList{"coffee", "cafe"},
		Brand:    strPtr("Blue Bottle"),
	}

	confidence, reasons := scorer.Score(doc, entity)
	assert.Equal(t, 1.0, confidence)
	// every fired signal still reports its reason even after clamping
	assert.Greater(t, len(reasons), 3)
}

func TestScore_BrandAndCategorySignals(t *testing.T) {
	scorer := NewDefaultScorer()
	doc := normalize.NewDocument("unboxing the new Anker charger I bought")

	entity := &models.ReferenceEntity{
		ID:       "p1",
		Name:     "PowerCore 20000",
		Category: models.EntityCategoryItem,
		Brand:    strPtr("Anker"),
	}

	confidence, reasons := scorer.Score(doc, entity)
	require.NotEmpty(t, reasons)
	// brand + category keyword + context bonus, no name overlap
	assert.InDelta(t, 0.9, confidence, 0.0001)
}

func TestDefaultWeights_Versioned(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, WeightsVersion, w.Version)
	assert.Equal(t, 0.3, w.MinConfidence)
	assert.NotEmpty(t, w.CategoryKeywords[models.EntityCategoryLocation])
	assert.NotEmpty(t, w.CategoryKeywords[models.EntityCategoryItem])
	assert.NotEmpty(t, w.ContextKeywords)
}
