// Package scoring implements the heuristic confidence scorer that links
// content text to reference entities. It is a recall-oriented, explainable
// scorer: fixed additive weights, not a learned model, and every triggered
// signal carries a human-readable reason.
package scoring

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Ramsey-B/fern/pkg/models"
)

// WeightsVersion identifies the active weight/keyword configuration. Bump it
// whenever a default below changes so downstream consumers can tell which
// scorer produced a suggestion.
const WeightsVersion = "1.0"

// Weights is the single declarative weight configuration consumed by the
// scorer. All signal scores are additive; the aggregate is clamped to [0, 1].
type Weights struct {
	Version string `json:"version"`

	// ExactName is awarded when the entity's normalized name appears as a
	// substring of the content text.
	ExactName float64 `json:"exact_name"`
	// NameToken is awarded per entity-name token found in the content text.
	NameToken float64 `json:"name_token"`
	// AddressToken is awarded per address token found in the content text.
	AddressToken float64 `json:"address_token"`
	// Tag is awarded per entity tag found in the content text.
	Tag float64 `json:"tag"`
	// Brand is awarded when the entity's brand appears in the content text.
	Brand float64 `json:"brand"`
	// Category is awarded when a category keyword for the entity's category
	// appears in the content text.
	Category float64 `json:"category"`
	// ContextBonus is a flat bonus when any context keyword appears anywhere
	// in the content text, regardless of the entity under consideration.
	ContextBonus float64 `json:"context_bonus"`

	// MinConfidence is the aggregate cutoff below which a candidate is not
	// surfaced.
	MinConfidence float64 `json:"min_confidence"`

	// CategoryKeywords maps an entity category to the keywords that indicate
	// content is talking about that kind of entity.
	CategoryKeywords map[models.EntityCategory][]string `json:"category_keywords"`
	// ContextKeywords are generic visit/purchase words that make any entity
	// reference slightly more likely.
	ContextKeywords []string `json:"context_keywords"`
}

// DefaultWeights returns the built-in weight/keyword configuration.
func DefaultWeights() Weights {
	return Weights{
		Version:       WeightsVersion,
		ExactName:     0.9,
		NameToken:     0.55,
		AddressToken:  0.35,
		Tag:           0.25,
		Brand:         0.6,
		Category:      0.2,
		ContextBonus:  0.1,
		MinConfidence: 0.3,
		CategoryKeywords: map[models.EntityCategory][]string{
			models.EntityCategoryLocation: {
				"cafe", "restaurant", "shop", "store", "park", "museum",
				"hotel", "bar", "bakery", "market",
			},
			models.EntityCategoryItem: {
				"bought", "ordered", "product", "item", "buy", "purchase",
				"unboxing", "review",
			},
		},
		ContextKeywords: []string{
			"visit", "visited", "went", "lunch", "dinner", "breakfast",
			"bought", "ordered", "tried", "recommend",
		},
	}
}

// LoadWeightsFile overlays a JSON weights document on top of the defaults.
// Fields absent from the file keep their default values.
func LoadWeightsFile(path string) (Weights, error) {
	weights := DefaultWeights()

	data, err := os.ReadFile(path)
	if err != nil {
		return weights, fmt.Errorf("read weights file: %w", err)
	}
	if err := json.Unmarshal(data, &weights); err != nil {
		return weights, fmt.Errorf("parse weights file: %w", err)
	}
	return weights, nil
}
