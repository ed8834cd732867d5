package scoring

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
)

// Signal is one triggered scoring signal: a partial score plus the reason a
// reviewer sees in the suggestion.
type Signal struct {
	Score  float64
	Reason string
}

// extractor inspects one prepared content document against one reference
// entity and returns zero or more triggered signals. Extractors are
// independent; the aggregator sums whatever fires.
type extractor func(doc *normalize.Document, entity *models.ReferenceEntity, w Weights) []Signal

// extractors lists every signal in aggregation order. Order only affects the
// reason list; the aggregate score is order-independent.
var extractors = []extractor{
	exactNameSignal,
	nameTokenSignal,
	addressTokenSignal,
	tagSignal,
	brandSignal,
	categorySignal,
	contextSignal,
}

// exactNameSignal fires when the whole normalized entity name appears as a
// substring of the content text.
func exactNameSignal(doc *normalize.Document, entity *models.ReferenceEntity, w Weights) []Signal {
	if !doc.Contains(entity.Name) {
		return nil
	}
	return []Signal{{
		Score:  w.ExactName,
		Reason: fmt.Sprintf("name %q appears in text", entity.Name),
	}}
}

// nameTokenSignal fires once per entity-name token present in the text.
func nameTokenSignal(doc *normalize.Document, entity *models.ReferenceEntity, w Weights) []Signal {
	var signals []Signal
	for _, token := range normalize.Tokenize(entity.Name) {
		if doc.HasToken(token) {
			signals = append(signals, Signal{
				Score:  w.NameToken,
				Reason: fmt.Sprintf("name token %q appears in text", token),
			})
		}
	}
	return signals
}

// addressTokenSignal fires once per address token present in the text.
func addressTokenSignal(doc *normalize.Document, entity *models.ReferenceEntity, w Weights) []Signal {
	if entity.Address == nil {
		return nil
	}
	var signals []Signal
	for _, token := range normalize.Tokenize(*entity.Address) {
		if doc.HasToken(token) {
			signals = append(signals, Signal{
				Score:  w.AddressToken,
				Reason: fmt.Sprintf("address token %q appears in text", token),
			})
		}
	}
	return signals
}

// tagSignal fires once per tag whose normalized form appears in the text.
func tagSignal(doc *normalize.Document, entity *models.ReferenceEntity, w Weights) []Signal {
	var signals []Signal
	for _, tag := range entity.Tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		if doc.Contains(tag) {
			signals = append(signals, Signal{
				Score:  w.Tag,
				Reason: fmt.Sprintf("tag %q appears in text", tag),
			})
		}
	}
	return signals
}

// brandSignal fires when the entity's brand appears in the text.
func brandSignal(doc *normalize.Document, entity *models.ReferenceEntity, w Weights) []Signal {
	if entity.Brand == nil || strings.TrimSpace(*entity.Brand) == "" {
		return nil
	}
	if !doc.Contains(*entity.Brand) {
		return nil
	}
	return []Signal{{
		Score:  w.Brand,
		Reason: fmt.Sprintf("brand %q appears in text", *entity.Brand),
	}}
}

// categorySignal fires at most once, on the first category keyword for the
// entity's category found in the text.
func categorySignal(doc *normalize.Document, entity *models.ReferenceEntity, w Weights) []Signal {
	for _, keyword := range w.CategoryKeywords[entity.Category] {
		if doc.HasToken(keyword) {
			return []Signal{{
				Score:  w.Category,
				Reason: fmt.Sprintf("category keyword %q appears in text", keyword),
			}}
		}
	}
	return nil
}

// contextSignal is the flat bonus for generic visit/purchase language. It
// fires at most once per document.
func contextSignal(doc *normalize.Document, _ *models.ReferenceEntity, w Weights) []Signal {
	for _, keyword := range w.ContextKeywords {
		if doc.HasToken(keyword) {
			return []Signal{{
				Score:  w.ContextBonus,
				Reason: fmt.Sprintf("context keyword %q appears in text", keyword),
			}}
		}
	}
	return nil
}
