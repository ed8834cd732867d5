package models

// MatchSuggestion is one scored candidate link between a content record and a
// reference entity. Suggestions are ephemeral per run; only accepted ones
// become relations.
type MatchSuggestion struct {
	ContentID  string   `json:"content_id"`
	EntityID   string   `json:"entity_id"`
	EntityName string   `json:"entity_name"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// ContentMatches holds the ranked suggestions for a single content record.
// An empty Suggestions list is a valid outcome, not an error.
type ContentMatches struct {
	ContentID   string            `json:"content_id"`
	Suggestions []MatchSuggestion `json:"suggestions"`
}

// MatchReport is the machine-readable result of one match pass
type MatchReport struct {
	OwnerScopeID    string           `json:"owner_scope_id"`
	Records         []ContentMatches `json:"records"`
	RecordCount     int              `json:"record_count"`
	SuggestionCount int              `json:"suggestion_count"`
	Failed          []UnitFailure    `json:"failed,omitempty"`
}

// UnitFailure reports a single failed unit of work (one record or one
// duplicate group). Failures never spill over into other units.
type UnitFailure struct {
	UnitID string `json:"unit_id"`
	Error  string `json:"error"`
}
