package models

// ContentRecord is a unit of free text (title + description of a media item)
// to be linked to reference entities. Records are produced by the content
// source and are immutable inside this service.
type ContentRecord struct {
	ID           string `json:"id" validate:"required"`
	Text         string `json:"text" validate:"required"`
	OwnerScopeID string `json:"owner_scope_id" validate:"required"`
}
