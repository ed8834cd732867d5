// Package merging implements duplicate detection and merging for reference
// entities: exact-key clustering, completeness scoring, survivor selection,
// and idempotent relation migration.
package merging

import (
	"fmt"
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
)

// BuildGroups clusters entities sharing (owner_scope_id, normalized_name_key)
// into candidate duplicate groups. Groups of size 1 are discarded. Clustering
// is deliberately exact-key only: a false merge silently reassigns relations,
// a false negative just waits for the next pass.
func BuildGroups(entities []models.ReferenceEntity) []models.DuplicateGroup {
	byKey := make(map[string][]models.ReferenceEntity)
	for _, entity := range entities {
		key := groupKey(&entity)
		if key == "" {
			continue
		}
		byKey[key] = append(byKey[key], entity)
	}

	groups := make([]models.DuplicateGroup, 0, len(byKey))
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}

		// stable member order inside a group; survivor selection has its own
		// tie-breaks but reports should not depend on map iteration
		sort.Slice(members, func(i, j int) bool {
			return members[i].ID < members[j].ID
		})

		groups = append(groups, models.DuplicateGroup{
			Key:          key,
			OwnerScopeID: members[0].OwnerScopeID,
			Members:      members,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key < groups[j].Key
	})

	return groups
}

// groupKey is the clustering identity: owner scope plus normalized name key.
// Entities missing a precomputed key fall back to normalizing their name.
func groupKey(entity *models.ReferenceEntity) string {
	nameKey := entity.NormalizedNameKey
	if nameKey == "" {
		nameKey = normalize.NameKey(entity.Name)
	}
	if nameKey == "" {
		return ""
	}
	return fmt.Sprintf("%s|%s", entity.OwnerScopeID, nameKey)
}
