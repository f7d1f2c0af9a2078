package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/resilience"
	"github.com/adrata/dataops-cli/pkg/anthropic"
)

// industryTaxonomy is the closed set of labels the classifier may answer
// with. Anything outside it is rejected and the company left alone.
var industryTaxonomy = map[string]bool{
	"Agriculture":           true,
	"Construction":          true,
	"Consumer Goods":        true,
	"Education":             true,
	"Energy":                true,
	"Financial Services":    true,
	"Government":            true,
	"Healthcare":            true,
	"Hospitality":           true,
	"Legal Services":        true,
	"Manufacturing":         true,
	"Media & Entertainment": true,
	"Nonprofit":             true,
	"Professional Services": true,
	"Real Estate":           true,
	"Retail":                true,
	"Technology":            true,
	"Telecommunications":    true,
	"Transportation":        true,
	"Utilities":             true,
}

const industrySystemPrompt = `You classify companies into exactly one industry label. Answer with the label only, no punctuation or explanation. Valid labels: ` +
	"Agriculture, Construction, Consumer Goods, Education, Energy, Financial Services, Government, Healthcare, Hospitality, Legal Services, Manufacturing, Media & Entertainment, Nonprofit, Professional Services, Real Estate, Retail, Technology, Telecommunications, Transportation, Utilities." +
	` If you cannot decide, answer Unknown.`

// IndustryClassifier assigns a taxonomy industry label to a company.
// Returns "" when the company cannot be classified.
type IndustryClassifier interface {
	Classify(ctx context.Context, c model.Company) (string, error)
}

// AnthropicClassifier implements IndustryClassifier over the Messages API.
type AnthropicClassifier struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClassifier creates a classifier. model may be empty to use the
// client default.
func NewAnthropicClassifier(client anthropic.Client, model string) *AnthropicClassifier {
	return &AnthropicClassifier{client: client, model: model}
}

func (a *AnthropicClassifier) Classify(ctx context.Context, c model.Company) (string, error) {
	prompt := fmt.Sprintf("Company: %s", c.Name)
	if c.Domain != "" {
		prompt += fmt.Sprintf("\nWebsite: %s", c.Domain)
	}
	if c.Industry != "" {
		prompt += fmt.Sprintf("\nCurrent label (may be wrong): %s", c.Industry)
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: 16,
		System:    industrySystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrapf(err, "classify industry for %s", c.ID)
	}
	resp.Usage.LogCost(resp.Model, "industry_refresh")

	label := strings.TrimSpace(resp.Text)
	if !industryTaxonomy[label] {
		return "", nil
	}
	return label, nil
}

// RefreshIndustry reclassifies every company's industry through the AI
// classifier. Industry is an explicit refresh field here: an existing label
// is overwritten when the classifier disagrees with it.
func (e *Enricher) RefreshIndustry(ctx context.Context, workspaceID string, classifier IndustryClassifier) (*model.PassResult, error) {
	log := zap.L().With(
		zap.String("component", "enrich"),
		zap.String("entity", "company"),
		zap.String("pass", "refresh-industry"),
		zap.String("workspace", workspaceID),
	)

	companies, err := e.store.ListCompanies(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list companies")
	}

	result := &model.PassResult{Examined: len(companies), Details: map[string]any{}}
	now := time.Now().UTC()

	for _, c := range companies {
		if strings.TrimSpace(c.Name) == "" {
			result.Skipped++
			continue
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return result, eris.Wrap(err, "enrich: pacing wait")
		}

		label, err := classifier.Classify(ctx, c)
		if err != nil {
			var quota *resilience.QuotaError
			if errors.As(err, &quota) {
				log.Warn("pass halted on classifier quota, remaining companies deferred",
					zap.String("provider", quota.Provider), zap.Error(quota.Err))
				result.Details["halted_by"] = quota.Provider
				return result, nil
			}
			result.Errors++
			log.Warn("industry classification failed, continuing",
				zap.String("company", c.ID), zap.Error(err))
			e.enqueue(ctx, log, "company", c.ID, workspaceID, "refresh-industry", err)
			continue
		}
		if label == "" || label == c.Industry {
			result.Skipped++
			continue
		}

		c.Industry = label
		c.Sources = model.AppendSource(c.Sources, "anthropic", now)
		if err := e.store.UpdateCompany(ctx, c); err != nil {
			result.Errors++
			log.Warn("industry update failed, continuing",
				zap.String("company", c.ID), zap.Error(err))
			continue
		}
		result.Changed++
	}

	log.Info("industry refresh complete",
		zap.Int("examined", result.Examined),
		zap.Int("changed", result.Changed),
		zap.Int("errors", result.Errors))
	return result, nil
}
