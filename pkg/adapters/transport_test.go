package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClientProxySchemes(t *testing.T) {
	for _, raw := range []string{"", "http://127.0.0.1:3128", "socks5://127.0.0.1:1080", "socks://127.0.0.1:1080"} {
		c, err := NewHTTPClient(5*time.Second, raw)
		require.NoError(t, err, raw)
		assert.Equal(t, 5*time.Second, c.Timeout)
	}

	_, err := NewHTTPClient(time.Second, "ftp://127.0.0.1:21")
	assert.Error(t, err)
}

func TestDoJSONReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, nil)
	require.NoError(t, err)
	_, err = DoJSON(context.Background(), srv.Client(), req, map[string]string{"a": "b"})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Contains(t, se.Body, "nope")
}
