package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EntityCategory classifies a reference entity
type EntityCategory string

const (
	// EntityCategoryLocation is a physical place (restaurant, park, shop)
	EntityCategoryLocation EntityCategory = "location"
	// EntityCategoryItem is a product
	EntityCategoryItem EntityCategory = "item"
)

// StringList is a JSONB-backed string slice column
type StringList []string

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("StringList.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, l)
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// ReferenceEntity is a catalog item (location or product) that content can
// refer to. Entities are created by upstream ingestion; this service only
// reads them for matching and deletes losers during merges.
type ReferenceEntity struct {
	ID                string         `json:"id" db:"id"`
	OwnerScopeID      string         `json:"owner_scope_id" db:"owner_scope_id"`
	Name              string         `json:"name" db:"name"`
	Category          EntityCategory `json:"category" db:"category"`
	NormalizedNameKey string         `json:"normalized_name_key" db:"normalized_name_key"`
	Address           *string        `json:"address,omitempty" db:"address"`
	Tags              StringList     `json:"tags,omitempty" db:"tags"`
	Brand             *string        `json:"brand,omitempty" db:"brand"`
	Description       *string        `json:"description,omitempty" db:"description"`
	ExternalLinks     StringList     `json:"external_links,omitempty" db:"external_links"`
	Phone             *string        `json:"phone,omitempty" db:"phone"`
	Hours             *string        `json:"hours,omitempty" db:"hours"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// ReferenceEntityListResponse is the response for listing reference entities
type ReferenceEntityListResponse struct {
	Items      []ReferenceEntity `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}
