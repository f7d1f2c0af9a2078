// Package enrich merges external provider data into person and company
// records without destroying existing higher-confidence values. Providers are
// called with strict pacing; a quota signal halts the pass and leaves the
// rest of the workspace for a future run.
package enrich

import (
	"context"
	"sort"
	"sync"

	"github.com/adrata/dataops-cli/internal/model"
)

// PersonData is a normalized provider response for a person. Empty fields
// mean "provider had nothing", never "clear the stored value".
type PersonData struct {
	WorkEmail     string
	PersonalEmail string
	Phone         string
	Title         string
	Department    string
	ProfileURL    string
}

// CompanyData is a normalized provider response for a company.
type CompanyData struct {
	Domain        string
	Industry      string
	EmployeeCount int
	City          string
	State         string
}

// PersonProvider looks up enrichment data for one person. A nil result with
// nil error means no match.
type PersonProvider interface {
	Name() string
	LookupPerson(ctx context.Context, p model.Person) (*PersonData, error)
}

// CompanyProvider looks up enrichment data for one company.
type CompanyProvider interface {
	Name() string
	LookupCompany(ctx context.Context, c model.Company) (*CompanyData, error)
}

// Registry holds the configured providers by entity kind.
type Registry struct {
	mu        sync.RWMutex
	people    map[string]PersonProvider
	companies map[string]CompanyProvider
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		people:    make(map[string]PersonProvider),
		companies: make(map[string]CompanyProvider),
	}
}

// RegisterPerson adds a person provider.
func (r *Registry) RegisterPerson(p PersonProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.people[p.Name()] = p
}

// RegisterCompany adds a company provider.
func (r *Registry) RegisterCompany(p CompanyProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies[p.Name()] = p
}

// PersonProviders returns person providers in name order so every run calls
// them in the same sequence.
func (r *Registry) PersonProviders() []PersonProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.people))
	for name := range r.people {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]PersonProvider, 0, len(names))
	for _, name := range names {
		out = append(out, r.people[name])
	}
	return out
}

// CompanyProviders returns company providers in name order.
func (r *Registry) CompanyProviders() []CompanyProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.companies))
	for name := range r.companies {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]CompanyProvider, 0, len(names))
	for _, name := range names {
		out = append(out, r.companies[name])
	}
	return out
}
