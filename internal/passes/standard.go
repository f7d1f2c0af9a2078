package passes

import (
	"context"
	"time"

	"github.com/adrata/dataops-cli/internal/classify"
	"github.com/adrata/dataops-cli/internal/dedupe"
	"github.com/adrata/dataops-cli/internal/enrich"
	"github.com/adrata/dataops-cli/internal/model"
)

// Standard pass names.
const (
	NameDedupePeople    = "dedupe-people"
	NameDedupeCompanies = "dedupe-companies"
	NameClassifyRecords = "classify-records"
	NameEnrichPeople    = "enrich-people"
	NameEnrichCompanies = "enrich-companies"
	NameRefreshIndustry = "refresh-industry"
	NameDrainRetries    = "drain-retries"
)

// DedupePeople merges duplicate person records.
type DedupePeople struct {
	Deduper *dedupe.Deduper
}

func (p *DedupePeople) Name() string            { return NameDedupePeople }
func (p *DedupePeople) Interval() time.Duration { return 24 * time.Hour }

func (p *DedupePeople) Run(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	return p.Deduper.People(ctx, workspaceID)
}

// DedupeCompanies merges duplicate company records.
type DedupeCompanies struct {
	Deduper *dedupe.Deduper
}

func (p *DedupeCompanies) Name() string            { return NameDedupeCompanies }
func (p *DedupeCompanies) Interval() time.Duration { return 24 * time.Hour }

func (p *DedupeCompanies) Run(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	return p.Deduper.Companies(ctx, workspaceID)
}

// ClassifyRecords moves pipeline records between prospect and lead based on
// engagement.
type ClassifyRecords struct {
	Classifier *classify.Classifier
}

func (p *ClassifyRecords) Name() string            { return NameClassifyRecords }
func (p *ClassifyRecords) Interval() time.Duration { return 6 * time.Hour }

func (p *ClassifyRecords) Run(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	return p.Classifier.Run(ctx, workspaceID)
}

// EnrichPeople fills missing person fields from external providers.
type EnrichPeople struct {
	Enricher *enrich.Enricher
}

func (p *EnrichPeople) Name() string            { return NameEnrichPeople }
func (p *EnrichPeople) Interval() time.Duration { return 24 * time.Hour }

func (p *EnrichPeople) Run(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	return p.Enricher.People(ctx, workspaceID)
}

// EnrichCompanies fills missing company fields from external providers.
type EnrichCompanies struct {
	Enricher *enrich.Enricher
}

func (p *EnrichCompanies) Name() string            { return NameEnrichCompanies }
func (p *EnrichCompanies) Interval() time.Duration { return 24 * time.Hour }

func (p *EnrichCompanies) Run(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	return p.Enricher.Companies(ctx, workspaceID)
}

// DrainRetries re-attempts entities parked in the retry queue by earlier
// enrichment failures.
type DrainRetries struct {
	Enricher *enrich.Enricher
}

func (p *DrainRetries) Name() string            { return NameDrainRetries }
func (p *DrainRetries) Interval() time.Duration { return 6 * time.Hour }

func (p *DrainRetries) Run(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	return p.Enricher.DrainRetries(ctx, workspaceID)
}

// RefreshIndustry reclassifies company industries through the AI classifier.
type RefreshIndustry struct {
	Enricher   *enrich.Enricher
	Classifier enrich.IndustryClassifier
}

func (p *RefreshIndustry) Name() string            { return NameRefreshIndustry }
func (p *RefreshIndustry) Interval() time.Duration { return 7 * 24 * time.Hour }

func (p *RefreshIndustry) Run(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	return p.Enricher.RefreshIndustry(ctx, workspaceID, p.Classifier)
}
