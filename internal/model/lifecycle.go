package model

import "time"

// Lifecycle records whether an entity is live or soft-deleted. Deletion is
// always a timestamp, never a hard row removal, so destructive passes stay
// auditable and reversible.
type Lifecycle struct {
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Active reports whether the entity has not been soft-deleted.
func (l Lifecycle) Active() bool {
	return l.DeletedAt == nil
}

// Delete marks the entity soft-deleted at the given time. A second call is a
// no-op; the original deletion timestamp is preserved.
func (l *Lifecycle) Delete(at time.Time) {
	if l.DeletedAt != nil {
		return
	}
	t := at.UTC()
	l.DeletedAt = &t
}

// Restore clears the soft-delete marker.
func (l *Lifecycle) Restore() {
	l.DeletedAt = nil
}
