package model

import (
	"strings"
	"time"
)

// Person is the canonical record for one human identity inside a workspace.
// Multiple raw rows that denote the same real person are collapsed into one
// Person by the dedupe pass.
type Person struct {
	ID            string             `json:"id"`
	WorkspaceID   string             `json:"workspace_id"`
	Name          string             `json:"name"`
	WorkEmail     string             `json:"work_email,omitempty"`
	PersonalEmail string             `json:"personal_email,omitempty"`
	Phone         string             `json:"phone,omitempty"`
	Title         string             `json:"title,omitempty"`
	Department    string             `json:"department,omitempty"`
	ProfileURL    string             `json:"profile_url,omitempty"`
	CustomFields  map[string]any     `json:"custom_fields,omitempty"`
	Sources       []EnrichmentSource `json:"sources,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Lifecycle
}

// PrimaryEmail returns the work email when set, otherwise the personal email.
func (p Person) PrimaryEmail() string {
	if strings.TrimSpace(p.WorkEmail) != "" {
		return p.WorkEmail
	}
	return p.PersonalEmail
}

// CompletenessScore is a weighted count of the descriptive fields a person
// record carries. It breaks creation-time ties when choosing a merge survivor:
// the record that tells us more about the person wins.
func (p Person) CompletenessScore() int {
	score := 0
	if strings.TrimSpace(p.Title) != "" {
		score += 3
	}
	if strings.TrimSpace(p.Phone) != "" {
		score += 2
	}
	if strings.TrimSpace(p.Department) != "" {
		score += 2
	}
	if strings.TrimSpace(p.ProfileURL) != "" {
		score += 2
	}
	if strings.TrimSpace(p.PersonalEmail) != "" {
		score++
	}
	score += len(p.CustomFields)
	return score
}

// EnrichedBy reports whether the given provider has already contributed to
// this record. The sources list is additive, so one hit is enough.
func (p Person) EnrichedBy(source string) bool {
	for _, s := range p.Sources {
		if s.Source == source {
			return true
		}
	}
	return false
}
