package models

// MergeState tracks a duplicate group through the merge state machine.
// Terminal states are Finalized and Aborted; an aborted group is left
// untouched and is safe to retry from scratch on the next pass.
type MergeState string

const (
	// MergeStatePlanned means a survivor has been selected, nothing written
	MergeStatePlanned MergeState = "planned"
	// MergeStateMigrating means loser relations are being copied to the survivor
	MergeStateMigrating MergeState = "migrating"
	// MergeStateFinalized means losers and their relations have been deleted
	MergeStateFinalized MergeState = "finalized"
	// MergeStateAborted means a store call failed and the group was left untouched
	MergeStateAborted MergeState = "aborted"
)

// DuplicateGroup is a set of reference entities sharing the same
// (owner_scope_id, normalized_name_key). Ephemeral per pass.
type DuplicateGroup struct {
	Key          string            `json:"key"`
	OwnerScopeID string            `json:"owner_scope_id"`
	Members      []ReferenceEntity `json:"members"`
}

// MergePlan is the output artifact of merging one duplicate group
type MergePlan struct {
	GroupKey              string     `json:"group_key"`
	SurvivorID            string     `json:"survivor_id"`
	MergedIDs             []string   `json:"merged_ids"`
	MigratedRelationCount int        `json:"migrated_relation_count"`
	State                 MergeState `json:"state"`
}

// MergeReport is the machine-readable result of one merge pass
type MergeReport struct {
	OwnerScopeID string        `json:"owner_scope_id"`
	DryRun       bool          `json:"dry_run"`
	GroupCount   int           `json:"group_count"`
	Plans        []MergePlan   `json:"plans"`
	Failed       []UnitFailure `json:"failed,omitempty"`
}
