package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, metricsEnabled bool) *httptest.Server {
	t.Helper()

	t.Setenv("BLOG_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("BLOG_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("BLOG_ARGON2_ITERATIONS", "1")
	t.Setenv("BLOG_ARGON2_PARALLELISM", "1")

	cfg := Config{
		LogFormat:      "json",
		DBSchema:       "blog",
		MetricsEnabled: metricsEnabled,
	}
	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(a.close)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestApp_NewRequiresSecret(t *testing.T) {
	t.Setenv("BLOG_JWT_SECRET", "")
	_, err := New(context.Background(), Config{LogFormat: "json", DBSchema: "blog"}, discardLogger())
	require.Error(t, err)
}

func TestApp_HealthAndReadiness(t *testing.T) {
	srv := newTestApp(t, false)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err = srv.Client().Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApp_EndToEnd(t *testing.T) {
	srv := newTestApp(t, true)

	status, user := call(t, srv, http.MethodPost, "/register", "", map[string]string{
		"email": "alice@example.com", "username": "alice", "password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, user["id"])

	status, _ = call(t, srv, http.MethodPost, "/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong password!",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	status, pair := call(t, srv, http.MethodPost, "/login", "", map[string]string{
		"email": "alice@example.com", "password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "bearer", pair["token_type"])
	access := pair["access_token"].(string)

	status, me := call(t, srv, http.MethodGet, "/me", access, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, user["id"], me["id"])

	status, created := call(t, srv, http.MethodPost, "/posts", access, map[string]string{
		"title": "Hello", "content": "First post.",
	})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, user["id"], created["author_id"])

	status, got := call(t, srv, http.MethodGet, "/posts/"+created["id"].(string), "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Hello", got["title"])

	status, _ = call(t, srv, http.MethodPost, "/logout", access, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, srv, http.MethodGet, "/me", access, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = call(t, srv, http.MethodPost, "/posts", access, map[string]string{
		"title": "Nope", "content": "Revoked.",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `blog_auth_outcomes_total{op="login",outcome="success"} 1`)
	require.Contains(t, string(body), `blog_auth_outcomes_total{op="login",outcome="authentication_failed"} 1`)
	require.Contains(t, string(body), `route="POST /register"`)
}
