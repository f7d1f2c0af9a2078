package coresignal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/dataops-cli/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL))
}

func TestSearchPerson_ResponseShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantNil  bool
		wantName string
	}{
		{
			name:     "bare_array",
			body:     `[{"id": 1, "name": "Jane Doe", "title": "VP Sales"}]`,
			wantName: "Jane Doe",
		},
		{
			name: "es_hits_envelope",
			body: `{"hits": {"hits": [
				{"_source": {"id": 2, "name": "Kim Park", "title": "CTO"}},
				{"_source": {"id": 3, "name": "Second Hit"}}
			]}}`,
			wantName: "Kim Park",
		},
		{
			name:     "single_object",
			body:     `{"id": 4, "name": "Solo Match"}`,
			wantName: "Solo Match",
		},
		{
			name:    "empty_array",
			body:    `[]`,
			wantNil: true,
		},
		{
			name:    "null_body",
			body:    `null`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "test-key", r.Header.Get("apikey"))
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(tt.body))
			})

			p, err := c.SearchPerson(context.Background(), PersonQuery{Name: "anyone"})
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantName, p.Name)
		})
	}
}

func TestSearchPerson_NotFoundIsClean(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	p, err := c.SearchPerson(context.Background(), PersonQuery{ProfileURL: "https://linkedin.com/in/nobody"})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSearchPerson_RateLimitIsQuotaError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "credits exhausted"}`))
	})

	_, err := c.SearchPerson(context.Background(), PersonQuery{Name: "anyone"})
	require.Error(t, err)
	assert.True(t, resilience.IsQuota(err))
	assert.False(t, resilience.IsTransient(err), "quota errors must not be retried")
}

func TestCollectCompany_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.CollectCompany(context.Background(), "acme.com")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestCollectCompany_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.URL.Path, "/company/collect/acme.com")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": 9, "name": "Acme", "industry": "Manufacturing", "employees_count": 120}`))
	})

	company, err := c.CollectCompany(context.Background(), "acme.com")
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(t, "Manufacturing", company.Industry)
	assert.Equal(t, 120, company.EmployeeCount)
}
