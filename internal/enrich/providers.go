package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/normalize"
	"github.com/adrata/dataops-cli/pkg/coresignal"
	"github.com/adrata/dataops-cli/pkg/dropcontact"
	"github.com/adrata/dataops-cli/pkg/perplexity"
)

// CoresignalPeople adapts the Coresignal employee API as a person provider.
// The profile URL is the preferred lookup key; a name search is the ambiguous
// fallback.
type CoresignalPeople struct {
	client coresignal.Client
}

// NewCoresignalPeople creates the adapter.
func NewCoresignalPeople(c coresignal.Client) *CoresignalPeople {
	return &CoresignalPeople{client: c}
}

func (p *CoresignalPeople) Name() string { return "coresignal" }

func (p *CoresignalPeople) LookupPerson(ctx context.Context, person model.Person) (*PersonData, error) {
	q := coresignal.PersonQuery{}
	if url := normalize.ProfileURL(person.ProfileURL); url != "" {
		q.ProfileURL = url
	} else if strings.TrimSpace(person.Name) != "" {
		q.Name = person.Name
	} else {
		return nil, nil
	}

	profile, err := p.client.SearchPerson(ctx, q)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}
	return &PersonData{
		WorkEmail:  profile.WorkEmail,
		Title:      profile.Title,
		Department: profile.Department,
		ProfileURL: normalize.ProfileURL(profile.ProfileURL),
	}, nil
}

// CoresignalCompanies adapts the Coresignal firmographic API as a company
// provider, keyed strictly by domain.
type CoresignalCompanies struct {
	client coresignal.Client
}

// NewCoresignalCompanies creates the adapter.
func NewCoresignalCompanies(c coresignal.Client) *CoresignalCompanies {
	return &CoresignalCompanies{client: c}
}

func (p *CoresignalCompanies) Name() string { return "coresignal" }

func (p *CoresignalCompanies) LookupCompany(ctx context.Context, company model.Company) (*CompanyData, error) {
	domain := normalize.Domain(company.Domain)
	if domain == "" {
		return nil, nil
	}

	profile, err := p.client.CollectCompany(ctx, domain)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}
	return &CompanyData{
		Domain:        normalize.Domain(profile.Website),
		Industry:      profile.Industry,
		EmployeeCount: profile.EmployeeCount,
		City:          profile.City,
		State:         profile.State,
	}, nil
}

// DropcontactPeople adapts Dropcontact contact discovery as a person
// provider. It needs at least a name plus a company hint or an email.
type DropcontactPeople struct {
	client dropcontact.Client
}

// NewDropcontactPeople creates the adapter.
func NewDropcontactPeople(c dropcontact.Client) *DropcontactPeople {
	return &DropcontactPeople{client: c}
}

func (p *DropcontactPeople) Name() string { return "dropcontact" }

func (p *DropcontactPeople) LookupPerson(ctx context.Context, person model.Person) (*PersonData, error) {
	req := dropcontact.ContactRequest{Email: normalize.Email(person.PrimaryEmail())}
	first, last := splitName(person.Name)
	req.FirstName = first
	req.LastName = last
	if req.Email == "" && (req.FirstName == "" || req.LastName == "") {
		return nil, nil
	}

	contact, err := p.client.Enrich(ctx, req)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, nil
	}
	return &PersonData{
		WorkEmail: contact.Email,
		Phone:     contact.Phone,
		Title:     contact.Job,
	}, nil
}

// PerplexityCompanies researches companies without a usable domain through
// the Perplexity completion API, asking for a strict JSON answer.
type PerplexityCompanies struct {
	client perplexity.Client
}

// NewPerplexityCompanies creates the adapter.
func NewPerplexityCompanies(c perplexity.Client) *PerplexityCompanies {
	return &PerplexityCompanies{client: c}
}

func (p *PerplexityCompanies) Name() string { return "perplexity" }

const companyResearchPrompt = `Find the official website domain, industry, headquarters city and US state, and approximate employee count for the company %q. Respond with only a JSON object with keys "domain", "industry", "city", "state", "employee_count". Use empty strings and 0 for anything you cannot verify.`

type companyResearchAnswer struct {
	Domain        string `json:"domain"`
	Industry      string `json:"industry"`
	City          string `json:"city"`
	State         string `json:"state"`
	EmployeeCount int    `json:"employee_count"`
}

func (p *PerplexityCompanies) LookupCompany(ctx context.Context, company model.Company) (*CompanyData, error) {
	if strings.TrimSpace(company.Name) == "" {
		return nil, nil
	}

	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "user", Content: fmt.Sprintf(companyResearchPrompt, company.Name)},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	answer, err := parseResearchAnswer(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, eris.Wrapf(err, "perplexity: parse answer for %s", company.Name)
	}
	if answer == nil {
		return nil, nil
	}
	return &CompanyData{
		Domain:        normalize.Domain(answer.Domain),
		Industry:      answer.Industry,
		EmployeeCount: answer.EmployeeCount,
		City:          answer.City,
		State:         answer.State,
	}, nil
}

// parseResearchAnswer extracts the JSON object from a completion that may
// wrap it in prose or a code fence.
func parseResearchAnswer(content string) (*companyResearchAnswer, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, nil
	}

	var answer companyResearchAnswer
	if err := json.Unmarshal([]byte(content[start:end+1]), &answer); err != nil {
		return nil, eris.Wrap(err, "decode research JSON")
	}
	if answer.Domain == "" && answer.Industry == "" && answer.City == "" && answer.EmployeeCount == 0 {
		return nil, nil
	}
	return &answer, nil
}

// splitName breaks a display name into first/last on the final space.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return name, ""
	}
	return strings.TrimSpace(name[:idx]), strings.TrimSpace(name[idx+1:])
}
