package enrich

import "strings"

// Refresh names the fields a pass may overwrite even when a value is already
// stored. Everything else follows fill-if-empty.
type Refresh map[string]bool

// NewRefresh builds a Refresh set from config field names.
func NewRefresh(fields []string) Refresh {
	r := make(Refresh, len(fields))
	for _, f := range fields {
		r[strings.ToLower(strings.TrimSpace(f))] = true
	}
	return r
}

// apply returns the value to store for one field: the provider value when the
// stored one is empty or the field is marked refresh, otherwise the stored
// value. changed reports whether the stored value would move.
func (r Refresh) apply(field, stored, fromProvider string) (value string, changed bool) {
	if strings.TrimSpace(fromProvider) == "" {
		return stored, false
	}
	if strings.TrimSpace(stored) != "" && !r[field] {
		return stored, false
	}
	if stored == fromProvider {
		return stored, false
	}
	return fromProvider, true
}

func (r Refresh) applyInt(field string, stored, fromProvider int) (int, bool) {
	if fromProvider == 0 {
		return stored, false
	}
	if stored != 0 && !r[field] {
		return stored, false
	}
	if stored == fromProvider {
		return stored, false
	}
	return fromProvider, true
}
