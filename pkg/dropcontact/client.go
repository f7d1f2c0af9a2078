// Package dropcontact wraps the Dropcontact contact-discovery API. The API is
// asynchronous: a batch is submitted, then polled until the enriched contacts
// are ready.
package dropcontact

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/adrata/dataops-cli/internal/resilience"
)

const (
	defaultBaseURL      = "https://api.dropcontact.io"
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 15
)

// Client discovers contact details for a person.
type Client interface {
	// Enrich submits one contact and polls until Dropcontact returns the
	// enriched record. Returns nil with no error when nothing was found.
	Enrich(ctx context.Context, req ContactRequest) (*Contact, error)
}

// ContactRequest identifies the person to enrich.
type ContactRequest struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Contact is one enriched contact record.
type Contact struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Job       string `json:"job"`
	Website   string `json:"website"`
}

type batchRequest struct {
	Data []ContactRequest `json:"data"`
}

type batchSubmitResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error,omitempty"`
}

type batchResultResponse struct {
	Success bool        `json:"success"`
	Reason  string      `json:"reason,omitempty"`
	Data    []batchItem `json:"data"`
}

type batchEmail struct {
	Email string `json:"email"`
}

type batchItem struct {
	Emails    []batchEmail `json:"email"`
	Phone     string       `json:"phone"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Job       string       `json:"job"`
	Website   string       `json:"website"`
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

// WithPollInterval overrides the delay between result polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *httpClient) {
		c.pollInterval = d
	}
}

type httpClient struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
	http         *http.Client
}

// NewClient creates a Dropcontact API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Enrich(ctx context.Context, req ContactRequest) (*Contact, error) {
	requestID, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "dropcontact: poll canceled")
		case <-time.After(c.pollInterval):
		}

		result, ready, err := c.poll(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if ready {
			return result, nil
		}
	}
	return nil, resilience.NewTransientError(
		eris.Errorf("dropcontact: request %s not ready after %d polls", requestID, c.maxPolls), 0)
}

func (c *httpClient) submit(ctx context.Context, req ContactRequest) (string, error) {
	body, err := json.Marshal(batchRequest{Data: []ContactRequest{req}})
	if err != nil {
		return "", eris.Wrap(err, "dropcontact: marshal request")
	}

	respBody, err := c.do(ctx, http.MethodPost, "/v1/enrich/all", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var submit batchSubmitResponse
	if err := json.Unmarshal(respBody, &submit); err != nil {
		return "", eris.Wrap(err, "dropcontact: unmarshal submit response")
	}
	if submit.RequestID == "" {
		return "", eris.Errorf("dropcontact: submit rejected: %s", submit.Error)
	}
	return submit.RequestID, nil
}

func (c *httpClient) poll(ctx context.Context, requestID string) (*Contact, bool, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/v1/enrich/all/"+requestID, nil)
	if err != nil {
		return nil, false, err
	}

	var result batchResultResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, false, eris.Wrap(err, "dropcontact: unmarshal result response")
	}
	if !result.Success {
		// "not ready yet" comes back as success=false with a waiting reason
		return nil, false, nil
	}
	if len(result.Data) == 0 {
		return nil, true, nil
	}

	item := result.Data[0]
	contact := &Contact{
		Phone:     item.Phone,
		FirstName: item.FirstName,
		LastName:  item.LastName,
		Job:       item.Job,
		Website:   item.Website,
	}
	if len(item.Emails) > 0 {
		contact.Email = item.Emails[0].Email
	}
	if contact.Email == "" && contact.Phone == "" {
		return nil, true, nil
	}
	return contact, true, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "dropcontact: create request")
	}
	req.Header.Set("X-Access-Token", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "dropcontact: send request"), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dropcontact: read response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusPaymentRequired:
		return nil, resilience.NewQuotaError("dropcontact",
			eris.Errorf("dropcontact: quota: %s", string(respBody)), resp.StatusCode)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("dropcontact: status %d: %s", resp.StatusCode, string(respBody)), resp.StatusCode)
	default:
		return nil, eris.Errorf("dropcontact: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
}
