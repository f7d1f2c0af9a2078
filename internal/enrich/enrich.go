package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/resilience"
	"github.com/adrata/dataops-cli/internal/store"
)

// Config tunes the enrichment batch loop.
type Config struct {
	// BatchSize bounds the fan-out inside one batch.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	// BatchDelay is the sleep between batches.
	BatchDelay time.Duration `yaml:"batch_delay" mapstructure:"batch_delay"`
	// MinCallDelay is the minimum spacing between provider calls across the
	// whole pass.
	MinCallDelay time.Duration `yaml:"min_call_delay" mapstructure:"min_call_delay"`
	// Refresh lists fields a provider value may overwrite even when set.
	Refresh []string `yaml:"refresh" mapstructure:"refresh"`
}

// DefaultConfig returns conservative pacing: 25-wide batches, 500ms between
// provider calls, 2s between batches.
func DefaultConfig() Config {
	return Config{
		BatchSize:    25,
		BatchDelay:   2 * time.Second,
		MinCallDelay: 500 * time.Millisecond,
	}
}

// Enricher runs enrichment passes over a workspace.
type Enricher struct {
	store    store.Store
	registry *Registry
	cfg      Config
	refresh  Refresh
	limiter  *rate.Limiter
	breakers *resilience.ProviderBreakers
	retry    resilience.RetryConfig
}

// New creates an Enricher.
func New(st store.Store, reg *Registry, cfg Config) *Enricher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.MinCallDelay <= 0 {
		cfg.MinCallDelay = DefaultConfig().MinCallDelay
	}
	return &Enricher{
		store:    st,
		registry: reg,
		cfg:      cfg,
		refresh:  NewRefresh(cfg.Refresh),
		limiter:  rate.NewLimiter(rate.Every(cfg.MinCallDelay), 1),
		breakers: resilience.NewProviderBreakers(resilience.DefaultBreakerConfig()),
		retry:    resilience.DefaultRetryConfig(),
	}
}

// errQuotaHalt wraps a provider quota error so the batch loop can tell "stop
// the pass" apart from a per-entity failure.
type errQuotaHalt struct {
	provider string
	cause    error
}

func (e *errQuotaHalt) Error() string {
	return "quota exhausted on " + e.provider + ": " + e.cause.Error()
}

func (e *errQuotaHalt) Unwrap() error { return e.cause }

// People enriches person records missing descriptive fields. Entities are
// processed in creation order, in bounded batches with a fixed delay between
// batches. A quota signal from any provider halts the pass; everything not
// yet written stays untouched for a future run.
func (e *Enricher) People(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	log := zap.L().With(
		zap.String("component", "enrich"),
		zap.String("entity", "person"),
		zap.String("workspace", workspaceID),
	)

	providers := e.registry.PersonProviders()
	if len(providers) == 0 {
		return nil, eris.New("enrich: no person providers configured")
	}

	people, err := e.store.ListPeople(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list people")
	}

	result := &model.PassResult{Examined: len(people), Details: map[string]any{}}
	var candidates []model.Person
	for _, p := range people {
		if needsPersonEnrichment(p) {
			candidates = append(candidates, p)
		} else {
			result.Skipped++
		}
	}
	log.Info("enrichment candidates selected",
		zap.Int("total", len(people)), zap.Int("candidates", len(candidates)))

	var mu sync.Mutex
	halted := e.runBatches(ctx, log, len(candidates), func(gctx context.Context, i int) error {
		p := candidates[i]
		changed, matched, err := e.enrichPerson(gctx, log, p, providers)

		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			var halt *errQuotaHalt
			if errors.As(err, &halt) {
				return err
			}
			result.Errors++
			log.Warn("person enrichment failed, continuing",
				zap.String("person", p.ID), zap.Error(err))
			e.enqueue(ctx, log, "person", p.ID, workspaceID, "enrich-people", err)
		case changed:
			result.Changed++
		case !matched:
			result.Skipped++
		}
		return nil
	})

	if halted != nil {
		var halt *errQuotaHalt
		if errors.As(halted, &halt) {
			log.Warn("pass halted on provider quota, remaining entities deferred",
				zap.String("provider", halt.provider), zap.Error(halt.cause))
			result.Details["halted_by"] = halt.provider
			return result, nil
		}
		return result, halted
	}
	return result, nil
}

// Companies enriches company records missing firmographic fields.
func (e *Enricher) Companies(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	log := zap.L().With(
		zap.String("component", "enrich"),
		zap.String("entity", "company"),
		zap.String("workspace", workspaceID),
	)

	providers := e.registry.CompanyProviders()
	if len(providers) == 0 {
		return nil, eris.New("enrich: no company providers configured")
	}

	companies, err := e.store.ListCompanies(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list companies")
	}

	result := &model.PassResult{Examined: len(companies), Details: map[string]any{}}
	var candidates []model.Company
	for _, c := range companies {
		if needsCompanyEnrichment(c) {
			candidates = append(candidates, c)
		} else {
			result.Skipped++
		}
	}
	log.Info("enrichment candidates selected",
		zap.Int("total", len(companies)), zap.Int("candidates", len(candidates)))

	var mu sync.Mutex
	halted := e.runBatches(ctx, log, len(candidates), func(gctx context.Context, i int) error {
		c := candidates[i]
		changed, matched, err := e.enrichCompany(gctx, log, c, providers)

		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			var halt *errQuotaHalt
			if errors.As(err, &halt) {
				return err
			}
			result.Errors++
			log.Warn("company enrichment failed, continuing",
				zap.String("company", c.ID), zap.Error(err))
			e.enqueue(ctx, log, "company", c.ID, workspaceID, "enrich-companies", err)
		case changed:
			result.Changed++
		case !matched:
			result.Skipped++
		}
		return nil
	})

	if halted != nil {
		var halt *errQuotaHalt
		if errors.As(halted, &halt) {
			log.Warn("pass halted on provider quota, remaining entities deferred",
				zap.String("provider", halt.provider), zap.Error(halt.cause))
			result.Details["halted_by"] = halt.provider
			return result, nil
		}
		return result, halted
	}
	return result, nil
}

// runBatches walks n items in BatchSize slices, fanning out inside a batch
// and sleeping BatchDelay between batches. The first quota error cancels the
// current batch and is returned.
func (e *Enricher) runBatches(ctx context.Context, log *zap.Logger, n int, work func(ctx context.Context, i int) error) error {
	for start := 0; start < n; start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > n {
			end = n
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error { return work(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if end < n && e.cfg.BatchDelay > 0 {
			log.Debug("batch complete, pacing",
				zap.Int("done", end), zap.Int("total", n),
				zap.Duration("delay", e.cfg.BatchDelay))
			select {
			case <-ctx.Done():
				return eris.Wrap(ctx.Err(), "enrich: canceled between batches")
			case <-time.After(e.cfg.BatchDelay):
			}
		}
	}
	return nil
}

// enrichPerson calls each provider for one person and merges what came back.
// Returns whether the stored record changed and whether any provider matched.
func (e *Enricher) enrichPerson(ctx context.Context, log *zap.Logger, p model.Person, providers []PersonProvider) (changed, matched bool, err error) {
	now := time.Now().UTC()
	var lookupErrs []error

	for _, provider := range providers {
		if p.EnrichedBy(provider.Name()) && len(e.refresh) == 0 {
			continue
		}

		data, err := lookup(ctx, e, provider.Name(), func(c context.Context) (*PersonData, error) {
			return provider.LookupPerson(c, p)
		})
		if err != nil {
			if resilience.IsQuota(err) {
				return false, false, &errQuotaHalt{provider: provider.Name(), cause: err}
			}
			lookupErrs = append(lookupErrs, eris.Wrapf(err, "provider %s", provider.Name()))
			continue
		}
		if data == nil {
			continue
		}

		matched = true
		var fieldChanged bool
		p, fieldChanged = applyPersonData(p, *data, e.refresh)
		changed = changed || fieldChanged
		p.Sources = model.AppendSource(p.Sources, provider.Name(), now)
		changed = true
	}

	if !matched {
		if len(lookupErrs) > 0 {
			return false, false, joinErrs(lookupErrs)
		}
		return false, false, nil
	}

	if err := e.store.UpdatePerson(ctx, p); err != nil {
		return false, true, eris.Wrapf(err, "enrich: update person %s", p.ID)
	}
	return changed, true, nil
}

func (e *Enricher) enrichCompany(ctx context.Context, log *zap.Logger, c model.Company, providers []CompanyProvider) (changed, matched bool, err error) {
	now := time.Now().UTC()
	var lookupErrs []error

	for _, provider := range providers {
		if c.EnrichedBy(provider.Name()) && len(e.refresh) == 0 {
			continue
		}

		data, err := lookup(ctx, e, provider.Name(), func(cx context.Context) (*CompanyData, error) {
			return provider.LookupCompany(cx, c)
		})
		if err != nil {
			if resilience.IsQuota(err) {
				return false, false, &errQuotaHalt{provider: provider.Name(), cause: err}
			}
			lookupErrs = append(lookupErrs, eris.Wrapf(err, "provider %s", provider.Name()))
			continue
		}
		if data == nil {
			continue
		}

		matched = true
		var fieldChanged bool
		c, fieldChanged = applyCompanyData(c, *data, e.refresh)
		changed = changed || fieldChanged
		c.Sources = model.AppendSource(c.Sources, provider.Name(), now)
		changed = true
	}

	if !matched {
		if len(lookupErrs) > 0 {
			return false, false, joinErrs(lookupErrs)
		}
		return false, false, nil
	}

	if err := e.store.UpdateCompany(ctx, c); err != nil {
		return false, true, eris.Wrapf(err, "enrich: update company %s", c.ID)
	}
	return changed, true, nil
}

// lookup wraps one provider call with pacing, the provider's circuit breaker,
// and transient-error retry. Quota errors pass straight through.
func lookup[T any](ctx context.Context, e *Enricher, provider string, fn func(ctx context.Context) (*T, error)) (*T, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: pacing wait")
	}
	breaker := e.breakers.Get(provider)
	return resilience.ExecuteVal(ctx, breaker, func(c context.Context) (*T, error) {
		return resilience.DoVal(c, e.retry, fn)
	})
}

func (e *Enricher) enqueue(ctx context.Context, log *zap.Logger, kind, id, workspaceID, pass string, cause error) {
	now := time.Now().UTC()
	entry := resilience.RetryEntry{
		EntityKind:   kind,
		EntityID:     id,
		WorkspaceID:  workspaceID,
		Pass:         pass,
		Error:        cause.Error(),
		ErrorType:    resilience.ClassifyError(cause),
		MaxRetries:   3,
		NextRetryAt:  now.Add(time.Hour),
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if err := e.store.EnqueueRetry(ctx, entry); err != nil {
		log.Warn("enqueue retry failed", zap.String("entity", id), zap.Error(err))
	}
}

func needsPersonEnrichment(p model.Person) bool {
	return strings.TrimSpace(p.WorkEmail) == "" ||
		strings.TrimSpace(p.Phone) == "" ||
		strings.TrimSpace(p.Title) == "" ||
		strings.TrimSpace(p.Department) == "" ||
		strings.TrimSpace(p.ProfileURL) == ""
}

func needsCompanyEnrichment(c model.Company) bool {
	return strings.TrimSpace(c.Domain) == "" ||
		strings.TrimSpace(c.Industry) == "" ||
		c.EmployeeCount == 0 ||
		strings.TrimSpace(c.City) == "" ||
		strings.TrimSpace(c.State) == ""
}

// applyPersonData merges provider fields into the person per the fill-or-
// refresh policy.
func applyPersonData(p model.Person, d PersonData, r Refresh) (model.Person, bool) {
	changed := false
	p.WorkEmail, _ = applyTracked(r, "work_email", p.WorkEmail, d.WorkEmail, &changed)
	p.PersonalEmail, _ = applyTracked(r, "personal_email", p.PersonalEmail, d.PersonalEmail, &changed)
	p.Phone, _ = applyTracked(r, "phone", p.Phone, d.Phone, &changed)
	p.Title, _ = applyTracked(r, "title", p.Title, d.Title, &changed)
	p.Department, _ = applyTracked(r, "department", p.Department, d.Department, &changed)
	p.ProfileURL, _ = applyTracked(r, "profile_url", p.ProfileURL, d.ProfileURL, &changed)
	return p, changed
}

func applyCompanyData(c model.Company, d CompanyData, r Refresh) (model.Company, bool) {
	changed := false
	c.Domain, _ = applyTracked(r, "domain", c.Domain, d.Domain, &changed)
	c.Industry, _ = applyTracked(r, "industry", c.Industry, d.Industry, &changed)
	if v, ch := r.applyInt("employee_count", c.EmployeeCount, d.EmployeeCount); ch {
		c.EmployeeCount = v
		changed = true
	}
	c.City, _ = applyTracked(r, "city", c.City, d.City, &changed)
	c.State, _ = applyTracked(r, "state", c.State, d.State, &changed)
	return c, changed
}

func applyTracked(r Refresh, field, stored, fromProvider string, changed *bool) (string, bool) {
	v, ch := r.apply(field, stored, fromProvider)
	if ch {
		*changed = true
	}
	return v, ch
}

func joinErrs(errs []error) error {
	return errors.Join(errs...)
}
