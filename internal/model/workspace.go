package model

import "time"

// Workspace is the tenant boundary. Every entity in the store is scoped to
// exactly one workspace id; a null or foreign workspace id on a row is a
// data-integrity defect handled by the workspace audit pass.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Lifecycle
}

// EnrichmentSource is one entry in an entity's enrichment provenance list.
// The list is append-only so later passes can tell which providers already
// touched a record.
type EnrichmentSource struct {
	Source     string    `json:"source"`
	EnrichedAt time.Time `json:"enriched_at"`
}

// AppendSource appends a provenance entry, preserving earlier entries even
// for the same provider (re-enrichment is part of the audit trail).
func AppendSource(sources []EnrichmentSource, source string, at time.Time) []EnrichmentSource {
	return append(sources, EnrichmentSource{Source: source, EnrichedAt: at.UTC()})
}
