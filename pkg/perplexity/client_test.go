package perplexity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/dataops-cli/internal/resilience"
)

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantQuota bool
		wantTrans bool
		wantID    string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "cmpl-123",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello!"}}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 5}
			}`,
			wantID: "cmpl-123",
		},
		{
			name:      "rate_limit_is_quota",
			status:    http.StatusTooManyRequests,
			body:      `{"error": "rate limit exceeded"}`,
			wantErr:   "rate limited",
			wantQuota: true,
		},
		{
			name:      "server_error_is_transient",
			status:    http.StatusInternalServerError,
			body:      `{"error": "internal server error"}`,
			wantErr:   "status 500",
			wantTrans: true,
		},
		{
			name:    "bad_request_is_permanent",
			status:  http.StatusBadRequest,
			body:    `{"error": "invalid model"}`,
			wantErr: "unexpected status 400",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				reqBody, _ := io.ReadAll(r.Body)
				var req ChatCompletionRequest
				require.NoError(t, json.Unmarshal(reqBody, &req))
				assert.Equal(t, defaultModel, req.Model, "default model fills in when unset")

				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("test-key", WithBaseURL(srv.URL))
			resp, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages: []Message{{Role: "user", Content: "research Acme Corp"}},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.wantQuota, resilience.IsQuota(err))
				assert.Equal(t, tt.wantTrans, resilience.IsTransient(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, resp.ID)
			require.Len(t, resp.Choices, 1)
			assert.Equal(t, "Hello!", resp.Choices[0].Message.Content)
		})
	}
}

func TestChatCompletion_ModelOverride(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqBody, _ := io.ReadAll(r.Body)
		var req ChatCompletionRequest
		json.Unmarshal(reqBody, &req)
		gotModel = req.Model
		w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithModel("sonar"))
	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "sonar", gotModel)
}
