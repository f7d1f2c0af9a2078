package model

import "time"

// ActionType categorizes an engagement event.
type ActionType string

const (
	ActionEmailSent     ActionType = "email_sent"
	ActionEmailReceived ActionType = "email_received"
	ActionCall          ActionType = "call"
	ActionMeeting       ActionType = "meeting"
	ActionMessage       ActionType = "message"
	ActionConnection    ActionType = "connection"
	ActionNote          ActionType = "note"
	ActionTask          ActionType = "task"
)

// communicationTypes lists the action types that count as real engagement for
// prospect/lead classification. Notes and tasks are internal bookkeeping, not
// contact with the person.
var communicationTypes = map[ActionType]bool{
	ActionEmailSent:     true,
	ActionEmailReceived: true,
	ActionCall:          true,
	ActionMeeting:       true,
	ActionMessage:       true,
	ActionConnection:    true,
}

// IsCommunication reports whether the action type counts as engagement.
func (t ActionType) IsCommunication() bool {
	return communicationTypes[t]
}

// Action is a logged engagement event referencing a person, company, or
// pipeline record.
type Action struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Type        ActionType `json:"type"`
	Subject     string     `json:"subject,omitempty"`
	PersonID    string     `json:"person_id,omitempty"`
	CompanyID   string     `json:"company_id,omitempty"`
	RecordID    string     `json:"record_id,omitempty"` // pipeline record reference
	OccurredAt  time.Time  `json:"occurred_at"`
}
