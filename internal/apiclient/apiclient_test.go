package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke_SuccessfulGETReturnsUniformOutputShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hello":"world"}`))
	}))
	defer srv.Close()

	c := New()
	defer c.Close()

	result := c.Invoke(context.Background(), Request{Method: "GET", URL: srv.URL}, nil)
	require.True(t, result.Success)
	assert.Equal(t, "success", result.Output["status"])
	assert.Equal(t, 200, result.Output["status_code"])
}

func TestInvoke_RetriesOnRetryableStatus(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New()
	defer c.Close()

	req := Request{
		Method: "GET",
		URL:    srv.URL,
		Retry:  RetryPolicy{MaxRetries: 3, DelaySeconds: 0, BackoffFactor: 1},
	}
	result := c.Invoke(context.Background(), req, nil)
	assert.True(t, result.Success)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestInvoke_GETResponseIsCachedWithinTTL(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"v":1}`))
	}))
	defer srv.Close()

	c := New()
	defer c.Close()

	req := Request{Method: "GET", URL: srv.URL, Cache: CachePolicy{Enabled: true, TTLSeconds: 60}}
	c.Invoke(context.Background(), req, nil)
	c.Invoke(context.Background(), req, nil)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestApplyAuth_APIKeyInQueryVsHeader(t *testing.T) {
	u, _ := url.Parse("https://api.example.com/v1")
	q := u.Query()
	headers := map[string]string{}
	applyAuth(Auth{Kind: AuthAPIKey, Key: "secret", In: "query", Name: "token"}, u, q, headers)
	assert.Equal(t, "secret", q.Get("token"))
	assert.Empty(t, headers)
}

func TestApplyAuth_BasicSetsAuthorizationHeader(t *testing.T) {
	u, _ := url.Parse("https://api.example.com/v1")
	q := u.Query()
	headers := map[string]string{}
	applyAuth(Auth{Kind: AuthBasic, Username: "u", Password: "p"}, u, q, headers)
	assert.Contains(t, headers["Authorization"], "Basic ")
}

func TestAuthPrincipalHash_DiffersByCredential(t *testing.T) {
	h1 := authPrincipalHash(Auth{Kind: AuthAPIKey, Key: "a"})
	h2 := authPrincipalHash(Auth{Kind: AuthAPIKey, Key: "b"})
	assert.NotEqual(t, h1, h2)
}
