package dedupe

import (
	"strings"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/normalize"
)

// mergePersonFields unions a duplicate's fields into the survivor. Scalar
// fields fill only when the survivor's value is empty; custom fields and
// enrichment provenance are additive. The name is the one exception: a real
// name from a duplicate replaces a placeholder on the survivor.
func mergePersonFields(survivor, dup model.Person) model.Person {
	survivor.Name = fillName(survivor.Name, dup.Name)
	survivor.WorkEmail = fill(survivor.WorkEmail, dup.WorkEmail)
	survivor.PersonalEmail = fill(survivor.PersonalEmail, dup.PersonalEmail)
	survivor.Phone = fill(survivor.Phone, dup.Phone)
	survivor.Title = fill(survivor.Title, dup.Title)
	survivor.Department = fill(survivor.Department, dup.Department)
	survivor.ProfileURL = fill(survivor.ProfileURL, dup.ProfileURL)
	survivor.CustomFields = fillMap(survivor.CustomFields, dup.CustomFields)
	survivor.Sources = unionSources(survivor.Sources, dup.Sources)
	return survivor
}

func mergeCompanyFields(survivor, dup model.Company) model.Company {
	survivor.Name = fillName(survivor.Name, dup.Name)
	survivor.Domain = fill(survivor.Domain, dup.Domain)
	survivor.Industry = fill(survivor.Industry, dup.Industry)
	if survivor.EmployeeCount == 0 {
		survivor.EmployeeCount = dup.EmployeeCount
	}
	survivor.City = fill(survivor.City, dup.City)
	survivor.State = fill(survivor.State, dup.State)
	survivor.CustomFields = fillMap(survivor.CustomFields, dup.CustomFields)
	survivor.Sources = unionSources(survivor.Sources, dup.Sources)
	return survivor
}

func fill(current, candidate string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	return candidate
}

func fillName(current, candidate string) string {
	if normalize.IsPlaceholderName(current) && !normalize.IsPlaceholderName(candidate) {
		return candidate
	}
	return fill(current, candidate)
}

func fillMap(current, candidate map[string]any) map[string]any {
	if len(candidate) == 0 {
		return current
	}
	if current == nil {
		current = make(map[string]any, len(candidate))
	}
	for k, v := range candidate {
		if _, ok := current[k]; !ok {
			current[k] = v
		}
	}
	return current
}

func unionSources(current, candidate []model.EnrichmentSource) []model.EnrichmentSource {
	seen := make(map[string]bool, len(current))
	for _, s := range current {
		seen[s.Source] = true
	}
	for _, s := range candidate {
		if !seen[s.Source] {
			current = append(current, s)
			seen[s.Source] = true
		}
	}
	return current
}
