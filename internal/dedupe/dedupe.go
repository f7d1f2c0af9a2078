// Package dedupe collapses duplicate person and company records into one
// canonical survivor per identity, repointing every dependent row before the
// duplicates are removed. Grouping runs in priority passes: a stable key
// (email, domain) first, normalized display name only for records without one.
package dedupe

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/normalize"
	"github.com/adrata/dataops-cli/internal/resilience"
	"github.com/adrata/dataops-cli/internal/store"
)

// Deduper runs identity-resolution passes against a workspace.
type Deduper struct {
	store store.Store
}

// New creates a Deduper.
func New(st store.Store) *Deduper {
	return &Deduper{store: st}
}

// group is one set of records sharing a canonical key, ordered so that the
// survivor is first: earliest created, then highest completeness score, then
// lowest id.
type group struct {
	key string
	ids []string
}

// People merges duplicate person records in the workspace. Records whose
// primary email normalizes to the same address form one identity; records
// without an email group by normalized name. Placeholder records (empty,
// URL-shaped, or boilerplate names with no email) are soft-deleted and their
// dependents unlinked.
func (d *Deduper) People(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	log := zap.L().With(
		zap.String("component", "dedupe"),
		zap.String("entity", "person"),
		zap.String("workspace", workspaceID),
	)

	people, err := d.store.ListPeople(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: list people")
	}

	result := &model.PassResult{Examined: len(people), Details: map[string]any{}}
	byID := make(map[string]model.Person, len(people))
	for _, p := range people {
		byID[p.ID] = p
	}

	var placeholders []string
	emailGroups := make(map[string][]string)
	nameGroups := make(map[string][]string)

	for _, p := range people {
		if key := normalize.Email(p.PrimaryEmail()); key != "" {
			emailGroups[key] = append(emailGroups[key], p.ID)
			continue
		}
		if normalize.IsPlaceholderName(p.Name) {
			placeholders = append(placeholders, p.ID)
			continue
		}
		if key := normalize.Name(p.Name); key != "" {
			nameGroups[key] = append(nameGroups[key], p.ID)
			continue
		}
		result.Skipped++
	}

	unlinked, err := d.retirePlaceholderPeople(ctx, placeholders, byID)
	if err != nil {
		return nil, err
	}
	if len(placeholders) > 0 {
		log.Info("placeholder people retired",
			zap.Int("records", len(placeholders)), zap.Int64("unlinked", unlinked))
	}

	passes := []struct {
		name   string
		groups map[string][]string
	}{
		{"email", emailGroups},
		{"name", nameGroups},
	}

	var totalGroups, merged int
	for i, p := range passes {
		groups := orderedGroups(p.groups)
		log.Info(fmt.Sprintf("dedupe pass %d/%d: %s", i+1, len(passes), p.name),
			zap.Int("keys", len(groups)))

		var passMerged int
		for _, g := range groups {
			if len(g.ids) < 2 {
				result.Skipped++
				continue
			}
			totalGroups++
			sortPeopleGroup(g.ids, byID)

			n, err := d.mergePeople(ctx, g.ids, byID)
			if err != nil {
				result.Errors++
				log.Warn("merge group failed, continuing",
					zap.String("key", g.key), zap.String("survivor", g.ids[0]), zap.Error(err))
				d.enqueue(ctx, log, "person", g.ids[0], workspaceID, "dedupe-people", err)
				continue
			}
			passMerged += n
		}
		merged += passMerged
		log.Info(fmt.Sprintf("dedupe pass %s complete", p.name), zap.Int("merged", passMerged))
	}

	result.Changed = merged
	result.Details["groups"] = totalGroups
	result.Details["merged"] = merged
	result.Details["placeholders"] = len(placeholders)
	result.Details["unlinked"] = unlinked
	return result, nil
}

// Companies merges duplicate company records. A shared normalized domain is
// authoritative regardless of how the display name is spelled; companies
// without a domain fall back to normalized-name grouping.
func (d *Deduper) Companies(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	log := zap.L().With(
		zap.String("component", "dedupe"),
		zap.String("entity", "company"),
		zap.String("workspace", workspaceID),
	)

	companies, err := d.store.ListCompanies(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: list companies")
	}

	result := &model.PassResult{Examined: len(companies), Details: map[string]any{}}
	byID := make(map[string]model.Company, len(companies))
	for _, c := range companies {
		byID[c.ID] = c
	}

	var placeholders []string
	domainGroups := make(map[string][]string)
	nameGroups := make(map[string][]string)

	for _, c := range companies {
		if key := normalize.Domain(c.Domain); key != "" {
			domainGroups[key] = append(domainGroups[key], c.ID)
			continue
		}
		if normalize.IsPlaceholderName(c.Name) {
			placeholders = append(placeholders, c.ID)
			continue
		}
		if key := normalize.Name(c.Name); key != "" {
			nameGroups[key] = append(nameGroups[key], c.ID)
			continue
		}
		result.Skipped++
	}

	unlinked, err := d.retirePlaceholderCompanies(ctx, placeholders, byID)
	if err != nil {
		return nil, err
	}
	if len(placeholders) > 0 {
		log.Info("placeholder companies retired",
			zap.Int("records", len(placeholders)), zap.Int64("unlinked", unlinked))
	}

	passes := []struct {
		name   string
		groups map[string][]string
	}{
		{"domain", domainGroups},
		{"name", nameGroups},
	}

	var totalGroups, merged int
	for i, p := range passes {
		groups := orderedGroups(p.groups)
		log.Info(fmt.Sprintf("dedupe pass %d/%d: %s", i+1, len(passes), p.name),
			zap.Int("keys", len(groups)))

		var passMerged int
		for _, g := range groups {
			if len(g.ids) < 2 {
				result.Skipped++
				continue
			}
			totalGroups++
			sortCompanyGroup(g.ids, byID)

			n, err := d.mergeCompanies(ctx, g.ids, byID)
			if err != nil {
				result.Errors++
				log.Warn("merge group failed, continuing",
					zap.String("key", g.key), zap.String("survivor", g.ids[0]), zap.Error(err))
				d.enqueue(ctx, log, "company", g.ids[0], workspaceID, "dedupe-companies", err)
				continue
			}
			passMerged += n
		}
		merged += passMerged
		log.Info(fmt.Sprintf("dedupe pass %s complete", p.name), zap.Int("merged", passMerged))
	}

	result.Changed = merged
	result.Details["groups"] = totalGroups
	result.Details["merged"] = merged
	result.Details["placeholders"] = len(placeholders)
	result.Details["unlinked"] = unlinked
	return result, nil
}

func (d *Deduper) retirePlaceholderPeople(ctx context.Context, ids []string, byID map[string]model.Person) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	unlinked, err := d.store.UnlinkPersonRefs(ctx, ids)
	if err != nil {
		return 0, eris.Wrap(err, "dedupe: unlink placeholder people")
	}
	now := time.Now().UTC()
	for _, id := range ids {
		p := byID[id]
		p.Delete(now)
		if err := d.store.UpdatePerson(ctx, p); err != nil {
			return unlinked, eris.Wrapf(err, "dedupe: retire placeholder person %s", id)
		}
	}
	return unlinked, nil
}

func (d *Deduper) retirePlaceholderCompanies(ctx context.Context, ids []string, byID map[string]model.Company) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	unlinked, err := d.store.UnlinkCompanyRefs(ctx, ids)
	if err != nil {
		return 0, eris.Wrap(err, "dedupe: unlink placeholder companies")
	}
	now := time.Now().UTC()
	for _, id := range ids {
		c := byID[id]
		c.Delete(now)
		if err := d.store.UpdateCompany(ctx, c); err != nil {
			return unlinked, eris.Wrapf(err, "dedupe: retire placeholder company %s", id)
		}
	}
	return unlinked, nil
}

// mergePeople merges a sorted group into its first element. Returns the
// number of duplicates removed.
func (d *Deduper) mergePeople(ctx context.Context, ids []string, byID map[string]model.Person) (int, error) {
	survivor := byID[ids[0]]
	losers := ids[1:]

	if _, err := d.store.RepointPersonRefs(ctx, survivor.ID, losers); err != nil {
		return 0, eris.Wrapf(err, "dedupe: repoint refs to %s", survivor.ID)
	}

	for _, id := range losers {
		survivor = mergePersonFields(survivor, byID[id])
	}
	if err := d.store.UpdatePerson(ctx, survivor); err != nil {
		return 0, eris.Wrapf(err, "dedupe: update survivor %s", survivor.ID)
	}
	if err := d.store.DeletePeople(ctx, losers); err != nil {
		return 0, eris.Wrapf(err, "dedupe: delete duplicates of %s", survivor.ID)
	}
	byID[survivor.ID] = survivor
	return len(losers), nil
}

func (d *Deduper) mergeCompanies(ctx context.Context, ids []string, byID map[string]model.Company) (int, error) {
	survivor := byID[ids[0]]
	losers := ids[1:]

	if _, err := d.store.RepointCompanyRefs(ctx, survivor.ID, losers); err != nil {
		return 0, eris.Wrapf(err, "dedupe: repoint refs to %s", survivor.ID)
	}

	for _, id := range losers {
		survivor = mergeCompanyFields(survivor, byID[id])
	}
	if err := d.store.UpdateCompany(ctx, survivor); err != nil {
		return 0, eris.Wrapf(err, "dedupe: update survivor %s", survivor.ID)
	}
	if err := d.store.DeleteCompanies(ctx, losers); err != nil {
		return 0, eris.Wrapf(err, "dedupe: delete duplicates of %s", survivor.ID)
	}
	byID[survivor.ID] = survivor
	return len(losers), nil
}

func (d *Deduper) enqueue(ctx context.Context, log *zap.Logger, kind, id, workspaceID, pass string, cause error) {
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
	if err := d.store.EnqueueRetry(ctx, entry); err != nil {
		log.Warn("enqueue retry failed", zap.String("entity", id), zap.Error(err))
	}
}

// orderedGroups returns groups sorted by key so a rerun walks identities in
// the same order.
func orderedGroups(m map[string][]string) []group {
	out := make([]group, 0, len(m))
	for k, ids := range m {
		out = append(out, group{key: k, ids: ids})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func sortPeopleGroup(ids []string, byID map[string]model.Person) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := byID[ids[i]], byID[ids[j]]
		// A placeholder-named record never outranks a real one, no matter
		// how old it is.
		if ap, bp := normalize.IsPlaceholderName(a.Name), normalize.IsPlaceholderName(b.Name); ap != bp {
			return bp
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if as, bs := a.CompletenessScore(), b.CompletenessScore(); as != bs {
			return as > bs
		}
		return a.ID < b.ID
	})
}

func sortCompanyGroup(ids []string, byID map[string]model.Company) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := byID[ids[i]], byID[ids[j]]
		if ap, bp := normalize.IsPlaceholderName(a.Name), normalize.IsPlaceholderName(b.Name); ap != bp {
			return bp
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if as, bs := a.CompletenessScore(), b.CompletenessScore(); as != bs {
			return as > bs
		}
		return a.ID < b.ID
	})
}
