package models

import "time"

// Relation is a confirmed link between one content record and one reference
// entity. The (content_id, entity_id) pair is unique; relations are created
// when a suggestion is accepted and migrated between entities during merges.
type Relation struct {
	ID           string    `json:"id" db:"id"`
	OwnerScopeID string    `json:"owner_scope_id" db:"owner_scope_id"`
	ContentID    string    `json:"content_id" db:"content_id"`
	EntityID     string    `json:"entity_id" db:"entity_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// EntityRelationCount pairs an entity with how many relations reference it
type EntityRelationCount struct {
	EntityID string `json:"entity_id" db:"entity_id"`
	Count    int    `json:"count" db:"count"`
}
