package scoring

import (
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
)

// Scorer aggregates signal scores into one confidence per
// (content, entity) pair.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weight configuration.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// NewDefaultScorer creates a scorer with the built-in weights.
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultWeights())
}

// Weights returns the active weight configuration.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// MinConfidence returns the configured suggestion cutoff.
func (s *Scorer) MinConfidence() float64 {
	return s.weights.MinConfidence
}

// Score runs every extractor for one prepared document against one entity,
// sums the triggered signals, and clamps the aggregate to [0, 1]. The reasons
// come back in extractor order so suggestions explain themselves.
func (s *Scorer) Score(doc *normalize.Document, entity *models.ReferenceEntity) (float64, []string) {
	var total float64
	var reasons []string

	for _, extract := range extractors {
		for _, sig := range extract(doc, entity, s.weights) {
			total += sig.Score
			reasons = append(reasons, sig.Reason)
		}
	}

	if total > 1.0 {
		total = 1.0
	}
	if total < 0.0 {
		total = 0.0
	}

	return total, reasons
}
