package model

import (
	"strings"
	"time"
)

// Company is the canonical record for one organization inside a workspace.
type Company struct {
	ID            string             `json:"id"`
	WorkspaceID   string             `json:"workspace_id"`
	Name          string             `json:"name"`
	Domain        string             `json:"domain,omitempty"`
	Industry      string             `json:"industry,omitempty"`
	EmployeeCount int                `json:"employee_count,omitempty"`
	City          string             `json:"city,omitempty"`
	State         string             `json:"state,omitempty"`
	CustomFields  map[string]any     `json:"custom_fields,omitempty"`
	Sources       []EnrichmentSource `json:"sources,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Lifecycle
}

// CompletenessScore mirrors Person.CompletenessScore for company survivor
// selection.
func (c Company) CompletenessScore() int {
	score := 0
	if strings.TrimSpace(c.Industry) != "" {
		score += 3
	}
	if c.EmployeeCount > 0 {
		score += 2
	}
	if strings.TrimSpace(c.City) != "" {
		score++
	}
	if strings.TrimSpace(c.State) != "" {
		score++
	}
	score += len(c.CustomFields)
	return score
}

// EnrichedBy reports whether the given provider has already contributed to
// this record.
func (c Company) EnrichedBy(source string) bool {
	for _, s := range c.Sources {
		if s.Source == source {
			return true
		}
	}
	return false
}
