package merging

import (
	"strings"
	"unicode"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
)

// Completeness score weights. These rank data quality, not recency: an entity
// with a booking link and a street address beats a bare name with more
// relations.
const (
	weightExternalLink    = 10
	weightDetailedAddress = 8
	weightPhone           = 6
	weightHours           = 4
	weightBrand           = 3
	weightDescription     = 2
	weightPerRelation     = 1
)

// genericAddressValues are bare city/region placeholders that carry no
// street-level information.
var genericAddressValues = map[string]struct{}{
	"tokyo":   {},
	"osaka":   {},
	"kyoto":   {},
	"japan":   {},
	"japon":   {},
	"unknown": {},
	"n a":     {},
	"none":    {},
}

// CompletenessScore computes the additive, unbounded merge score for one
// duplicate-group member. relationCount is how many relations currently
// reference the entity.
func CompletenessScore(entity *models.ReferenceEntity, relationCount int) int {
	score := 0

	if len(entity.ExternalLinks) > 0 {
		score += weightExternalLink
	}
	if HasDetailedAddress(entity) {
		score += weightDetailedAddress
	}
	if hasValue(entity.Phone) {
		score += weightPhone
	}
	if hasValue(entity.Hours) {
		score += weightHours
	}
	if hasValue(entity.Brand) {
		score += weightBrand
	}
	if hasValue(entity.Description) {
		score += weightDescription
	}
	score += relationCount * weightPerRelation

	return score
}

// HasDetailedAddress reports whether the entity's address carries street-level
// detail: non-empty after normalization, not a known generic placeholder, and
// either multi-token or containing a digit.
func HasDetailedAddress(entity *models.ReferenceEntity) bool {
	if entity.Address == nil {
		return false
	}

	addr := normalize.Text(*entity.Address)
	if addr == "" {
		return false
	}
	if _, generic := genericAddressValues[addr]; generic {
		return false
	}

	if strings.ContainsRune(addr, ' ') {
		return true
	}
	for _, r := range addr {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasValue(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
