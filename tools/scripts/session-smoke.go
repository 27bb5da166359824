// Package main provides a CI-friendly smoke test for the blog session lifecycle.
//
// It validates:
//   - register + login
//   - /me with the issued access token
//   - refresh rotation (the consumed refresh token is rejected)
//   - logout revokes the access token
//   - logout-all revokes every refresh token of the user
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type smokeClient struct {
	base    string
	http    *http.Client
	timeout time.Duration
	verbose bool
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		password = flag.String("password", "smoke-test-password", "Password for the throwaway account")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{},
		timeout: *timeout,
		verbose: *verbose,
	}
	root := context.Background()

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	email := "smoke-" + suffix + "@example.com"
	username := "smoke_" + suffix

	c.mustStatus(root, http.MethodPost, "/register", "", map[string]string{
		"email": email, "username": username, "password": *password,
	}, http.StatusCreated, nil)

	var first tokenPair
	c.mustStatus(root, http.MethodPost, "/login", "", map[string]string{
		"email": email, "password": *password,
	}, http.StatusOK, &first)
	if first.TokenType != "bearer" || first.AccessToken == "" || first.RefreshToken == "" {
		fatalf("login: unexpected pair %+v", first)
	}

	c.mustStatus(root, http.MethodGet, "/me", first.AccessToken, nil, http.StatusOK, nil)

	var rotated tokenPair
	c.mustStatus(root, http.MethodPost, "/refresh", "", map[string]string{
		"refresh_token": first.RefreshToken,
	}, http.StatusOK, &rotated)
	if rotated.RefreshToken == first.RefreshToken {
		fatalf("refresh: refresh token was not rotated")
	}
	c.mustStatus(root, http.MethodPost, "/refresh", "", map[string]string{
		"refresh_token": first.RefreshToken,
	}, http.StatusUnauthorized, nil)

	c.mustStatus(root, http.MethodPost, "/logout", first.AccessToken, nil, http.StatusOK, nil)
	c.mustStatus(root, http.MethodGet, "/me", first.AccessToken, nil, http.StatusUnauthorized, nil)

	c.mustStatus(root, http.MethodPost, "/logout-all", rotated.AccessToken, nil, http.StatusOK, nil)
	c.mustStatus(root, http.MethodPost, "/refresh", "", map[string]string{
		"refresh_token": rotated.RefreshToken,
	}, http.StatusUnauthorized, nil)

	fmt.Printf("OK: user=%s\n", username)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func (c *smokeClient) mustStatus(parent context.Context, method, path, bearer string, body any, want int, dst any) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("marshal %s %s: %v", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		fatalf("build %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("%s %s: read body: %v", method, path, err)
	}
	if c.verbose {
		fmt.Printf("%s %s -> %d %s\n", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode != want {
		fatalf("%s %s: status=%d want=%d body=%s", method, path, resp.StatusCode, want, raw)
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
