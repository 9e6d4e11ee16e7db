package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/jhadepilot/pkg/adapters"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, "llama3-70b-8192", body["model"])
		assert.EqualValues(t, 4000, body["max_tokens"])
		assert.EqualValues(t, 0.7, body["temperature"])
		assert.EqualValues(t, 0.9, body["top_p"])
		assert.Equal(t, false, body["stream"])

		msgs, ok := body["messages"].([]any)
		if assert.True(t, ok) && assert.Len(t, msgs, 2) {
			assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
			assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
			assert.Equal(t, "hello", msgs[1].(map[string]any)["content"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"world"}}],"usage":{"prompt_tokens":2,"completion_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.Client(), srv.URL+"/v1/")
	resp, err := c.Generate(context.Background(), adapters.GenerateRequest{
		System:      "be brief",
		Prompt:      "hello",
		Temperature: 0.7,
		TopP:        0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, "world", resp.Text)
	assert.Equal(t, 2, resp.InputTokens)
	assert.Equal(t, 5, resp.OutputTokens)
}

func TestGenerateErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusBadGateway, body: `{"error":"down"}`},
		{name: "invalid json", status: http.StatusOK, body: `{"choices":`, wantErr: adapters.ErrMalformedResponse},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: adapters.ErrMalformedResponse},
		{name: "no message", status: http.StatusOK, body: `{"choices":[{}]}`, wantErr: adapters.ErrMalformedResponse},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`, wantErr: adapters.ErrMalformedResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient("k", srv.Client(), srv.URL)
			_, err := c.Generate(context.Background(), adapters.GenerateRequest{Prompt: "p"})
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			var se *adapters.StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.status, se.Code)
		})
	}
}

func TestGenerateRequiresKeyAndPrompt(t *testing.T) {
	c := NewClient("", nil, "")
	_, err := c.Generate(context.Background(), adapters.GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, adapters.ErrMissingAPIKey)

	c = NewClient("k", nil, "")
	_, err = c.Generate(context.Background(), adapters.GenerateRequest{Prompt: " "})
	assert.ErrorIs(t, err, adapters.ErrEmptyPrompt)
}
