// Package coresignal wraps the Coresignal professional-profile API: employee
// search/collect for people and firmographic collect for companies.
package coresignal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/adrata/dataops-cli/internal/resilience"
)

const defaultBaseURL = "https://api.coresignal.com/cdapi/v1"

// Client performs profile lookups against the Coresignal API.
type Client interface {
	// SearchPerson finds an employee profile by LinkedIn URL or name+company.
	// Returns nil with no error when nothing matches.
	SearchPerson(ctx context.Context, q PersonQuery) (*Person, error)
	// CollectCompany fetches a company profile by website domain. Returns nil
	// with no error when nothing matches.
	CollectCompany(ctx context.Context, domain string) (*Company, error)
}

// PersonQuery identifies a person to search for. ProfileURL wins over the
// name fields when both are set.
type PersonQuery struct {
	ProfileURL  string `json:"linkedin_url,omitempty"`
	Name        string `json:"name,omitempty"`
	CompanyName string `json:"experience_company_name,omitempty"`
}

// Person is a normalized employee profile.
type Person struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Department  string `json:"department"`
	Location    string `json:"location"`
	ProfileURL  string `json:"url"`
	WorkEmail   string `json:"primary_professional_email"`
	CompanyName string `json:"experience_company_name"`
}

// Company is a normalized firmographic profile.
type Company struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Website       string `json:"website"`
	Industry      string `json:"industry"`
	EmployeeCount int    `json:"employees_count"`
	City          string `json:"headquarters_city"`
	State         string `json:"headquarters_state"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Coresignal API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchPerson(ctx context.Context, q PersonQuery) (*Person, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, eris.Wrap(err, "coresignal: marshal query")
	}

	respBody, err := c.do(ctx, http.MethodPost, "/professional_network/employee/search/filter", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if respBody == nil {
		return nil, nil
	}

	people, err := decodeHits[Person](respBody)
	if err != nil {
		return nil, eris.Wrap(err, "coresignal: decode search response")
	}
	if len(people) == 0 {
		return nil, nil
	}
	return &people[0], nil
}

func (c *httpClient) CollectCompany(ctx context.Context, domain string) (*Company, error) {
	path := "/professional_network/company/collect/" + url.PathEscape(domain)
	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if respBody == nil {
		return nil, nil
	}

	companies, err := decodeHits[Company](respBody)
	if err != nil {
		return nil, eris.Wrap(err, "coresignal: decode collect response")
	}
	if len(companies) == 0 {
		return nil, nil
	}
	return &companies[0], nil
}

// do runs one request and maps status codes onto the error taxonomy: 404 is
// a clean no-match (nil body, nil error), 429 is quota exhaustion, 5xx/408
// are transient.
func (c *httpClient) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "coresignal: create request")
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "coresignal: send request"), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "coresignal: read response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resilience.NewQuotaError("coresignal",
			eris.Errorf("coresignal: rate limited: %s", string(respBody)), resp.StatusCode)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("coresignal: status %d: %s", resp.StatusCode, string(respBody)), resp.StatusCode)
	default:
		return nil, eris.Errorf("coresignal: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
}

// hitsEnvelope is the Elasticsearch-style response shape some Coresignal
// endpoints return instead of a bare array.
type hitsEnvelope struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// decodeHits normalizes the three response shapes Coresignal serves for the
// same logical data: a bare array, a single object, or an ES hits envelope.
func decodeHits[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, eris.Wrap(err, "decode array")
		}
		return out, nil
	}

	var envelope hitsEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Hits.Hits) > 0 {
		out := make([]T, 0, len(envelope.Hits.Hits))
		for i, h := range envelope.Hits.Hits {
			var item T
			if err := json.Unmarshal(h.Source, &item); err != nil {
				return nil, eris.Wrap(err, fmt.Sprintf("decode hit %d", i))
			}
			out = append(out, item)
		}
		return out, nil
	}

	var single T
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, eris.Wrap(err, "decode object")
	}
	return []T{single}, nil
}
