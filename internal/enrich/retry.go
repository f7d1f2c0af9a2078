package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/resilience"
)

// Requeue backoff: doubles per attempt from one hour, capped at a day.
const (
	retryBaseDelay = time.Hour
	retryMaxDelay  = 24 * time.Hour
)

// DrainRetries re-attempts entities whose earlier enrichment failures landed
// in the retry queue. Entries that succeed leave the queue; entries that fail
// again go back with doubled backoff until their budget runs out. A provider
// quota signal halts the drain the same way it halts a full pass, leaving the
// untried entries queued as they were.
func (e *Enricher) DrainRetries(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	log := zap.L().With(
		zap.String("component", "enrich"),
		zap.String("entity", "retry"),
		zap.String("workspace", workspaceID),
	)

	entries, err := e.store.DequeueRetries(ctx, resilience.RetryFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: dequeue retries")
	}

	result := &model.PassResult{Details: map[string]any{}}
	personProviders := e.registry.PersonProviders()
	companyProviders := e.registry.CompanyProviders()

	var (
		peopleByID    map[string]model.Person
		companiesByID map[string]model.Company
	)

	for _, entry := range entries {
		if entry.WorkspaceID != workspaceID {
			continue
		}
		result.Examined++

		var (
			changed bool
			found   bool
			runErr  error
		)
		switch entry.EntityKind {
		case "person":
			if len(personProviders) == 0 {
				result.Skipped++
				continue
			}
			if peopleByID == nil {
				people, err := e.store.ListPeople(ctx, workspaceID)
				if err != nil {
					return nil, eris.Wrap(err, "enrich: list people for retry drain")
				}
				peopleByID = make(map[string]model.Person, len(people))
				for _, p := range people {
					peopleByID[p.ID] = p
				}
			}
			var p model.Person
			if p, found = peopleByID[entry.EntityID]; found {
				changed, _, runErr = e.enrichPerson(ctx, log, p, personProviders)
			}
		case "company":
			if len(companyProviders) == 0 {
				result.Skipped++
				continue
			}
			if companiesByID == nil {
				companies, err := e.store.ListCompanies(ctx, workspaceID)
				if err != nil {
					return nil, eris.Wrap(err, "enrich: list companies for retry drain")
				}
				companiesByID = make(map[string]model.Company, len(companies))
				for _, c := range companies {
					companiesByID[c.ID] = c
				}
			}
			var c model.Company
			if c, found = companiesByID[entry.EntityID]; found {
				changed, _, runErr = e.enrichCompany(ctx, log, c, companyProviders)
			}
		default:
			log.Warn("unknown entity kind in retry queue, dropping",
				zap.String("kind", entry.EntityKind), zap.String("entry", entry.ID))
			e.removeRetry(ctx, log, entry.ID)
			result.Skipped++
			continue
		}

		if !found {
			// Merged away or deleted since the failure.
			e.removeRetry(ctx, log, entry.ID)
			result.Skipped++
			continue
		}

		if runErr != nil {
			var halt *errQuotaHalt
			if errors.As(runErr, &halt) {
				log.Warn("drain halted on provider quota, remaining entries deferred",
					zap.String("provider", halt.provider), zap.Error(halt.cause))
				result.Details["halted_by"] = halt.provider
				return result, nil
			}
			result.Errors++
			e.requeue(ctx, log, entry, runErr)
			continue
		}

		e.removeRetry(ctx, log, entry.ID)
		if changed {
			result.Changed++
		} else {
			result.Skipped++
		}
	}

	log.Info("retry queue drained",
		zap.Int("examined", result.Examined),
		zap.Int("changed", result.Changed),
		zap.Int("errors", result.Errors))
	return result, nil
}

// requeue charges one attempt against the entry and puts it back with the
// next backoff, or drops it once the budget is spent.
func (e *Enricher) requeue(ctx context.Context, log *zap.Logger, entry resilience.RetryEntry, cause error) {
	now := time.Now().UTC()
	entry.RetryCount++
	entry.Error = cause.Error()
	entry.ErrorType = resilience.ClassifyError(cause)
	entry.LastFailedAt = now

	if !entry.CanRetry() {
		log.Warn("retry budget exhausted, dropping entry",
			zap.String("kind", entry.EntityKind),
			zap.String("entity", entry.EntityID),
			zap.Error(cause))
		e.removeRetry(ctx, log, entry.ID)
		return
	}

	entry.NextRetryAt = entry.NextBackoff(now, retryBaseDelay, retryMaxDelay)
	if err := e.store.EnqueueRetry(ctx, entry); err != nil {
		log.Warn("requeue failed", zap.String("entry", entry.ID), zap.Error(err))
	}
}

func (e *Enricher) removeRetry(ctx context.Context, log *zap.Logger, id string) {
	if err := e.store.RemoveRetry(ctx, id); err != nil {
		log.Warn("remove retry failed", zap.String("entry", id), zap.Error(err))
	}
}
