// Package matching ranks reference entities against content records. The
// engine is a pure function of (record, entity set); persistence and
// transport live in the service and processors.
package matching

import (
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"github.com/Ramsey-B/fern/pkg/scoring"
)

// Config contains configuration for the match engine.
type Config struct {
	MinConfidence  float64 // Minimum confidence to surface a suggestion (default: 0.3)
	MaxSuggestions int     // Maximum suggestions per content record (default: 5)
}

// DefaultConfig returns sensible defaults aligned with the default weights.
func DefaultConfig() Config {
	return Config{
		MinConfidence:  scoring.DefaultWeights().MinConfidence,
		MaxSuggestions: 5,
	}
}

// Engine scores and ranks candidate entities for content records.
type Engine struct {
	logger ectologger.Logger
	scorer *scoring.Scorer
	config Config
}

// NewEngine creates a new match engine.
func NewEngine(logger ectologger.Logger, scorer *scoring.Scorer, config Config) *Engine {
	if config.MaxSuggestions <= 0 {
		config.MaxSuggestions = DefaultConfig().MaxSuggestions
	}
	return &Engine{
		logger: logger,
		scorer: scorer,
		config: config,
	}
}

// Suggest scores every candidate entity against the record's text and returns
// the ranked suggestions: confidence descending, ties broken by entity name
// ascending then id ascending, truncated to MaxSuggestions. Candidates below
// MinConfidence are dropped (logged at debug only). Inputs are not mutated;
// an empty result is a valid outcome.
func (e *Engine) Suggest(record *models.ContentRecord, candidates []models.ReferenceEntity) []models.MatchSuggestion {
	doc := normalize.NewDocument(record.Text)

	suggestions := make([]models.MatchSuggestion, 0, len(candidates))
	for i := range candidates {
		entity := &candidates[i]

		confidence, reasons := e.scorer.Score(doc, entity)
		if confidence < e.config.MinConfidence {
			if confidence > 0 {
				e.logger.WithFields(map[string]any{
					"content_id": record.ID,
					"entity_id":  entity.ID,
					"confidence": confidence,
				}).Debug("Candidate below confidence cutoff")
			}
			continue
		}

		suggestions = append(suggestions, models.MatchSuggestion{
			ContentID:  record.ID,
			EntityID:   entity.ID,
			EntityName: entity.Name,
			Confidence: confidence,
			Reasons:    reasons,
		})
	}

	sortSuggestions(suggestions)
	if len(suggestions) > e.config.MaxSuggestions {
		suggestions = suggestions[:e.config.MaxSuggestions]
	}

	return suggestions
}

// sortSuggestions orders by confidence descending with deterministic
// tie-breaks (name ascending, then entity id ascending) so ranking never
// depends on input order.
func sortSuggestions(suggestions []models.MatchSuggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		if suggestions[i].EntityName != suggestions[j].EntityName {
			return suggestions[i].EntityName < suggestions[j].EntityName
		}
		return suggestions[i].EntityID < suggestions[j].EntityID
	})
}
