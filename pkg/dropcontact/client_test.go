package dropcontact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/dataops-cli/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithPollInterval(time.Millisecond))
}

func TestEnrich_SubmitThenPoll(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Access-Token"))
		switch r.Method {
		case http.MethodPost:
			w.Write([]byte(`{"request_id": "req-42"}`))
		case http.MethodGet:
			assert.Contains(t, r.URL.Path, "req-42")
			if polls.Add(1) < 3 {
				w.Write([]byte(`{"success": false, "reason": "Waiting for the deliverability check"}`))
				return
			}
			w.Write([]byte(`{"success": true, "data": [{
				"email": [{"email": "jane@acme.com"}],
				"phone": "+33 1 23 45 67 89",
				"first_name": "Jane", "last_name": "Doe", "job": "VP Sales"
			}]}`))
		}
	})

	contact, err := c.Enrich(context.Background(), ContactRequest{
		FirstName: "Jane", LastName: "Doe", Website: "acme.com",
	})
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "jane@acme.com", contact.Email)
	assert.Equal(t, "+33 1 23 45 67 89", contact.Phone)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestEnrich_NoMatchReturnsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"request_id": "req-1"}`))
			return
		}
		w.Write([]byte(`{"success": true, "data": [{"first_name": "Jane"}]}`))
	})

	contact, err := c.Enrich(context.Background(), ContactRequest{FirstName: "Jane"})
	require.NoError(t, err)
	assert.Nil(t, contact, "a record with no email or phone is not a match")
}

func TestEnrich_QuotaErrorOnPaymentRequired(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error": "no credits left"}`))
	})

	_, err := c.Enrich(context.Background(), ContactRequest{Email: "x@y.com"})
	require.Error(t, err)
	assert.True(t, resilience.IsQuota(err))
}

func TestEnrich_SubmitRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "invalid payload"}`))
	})

	_, err := c.Enrich(context.Background(), ContactRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit rejected")
}
