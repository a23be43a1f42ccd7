// Package webapi talks to the trading web services: web login, cookie checks,
// inventories, live trades and trade offers.
package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// ErrUnauthorized is returned when the web session is not (or no longer) accepted.
var ErrUnauthorized = errors.New("webapi: unauthorized")

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client is a cookie-carrying HTTP client for the web services.
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its jar is kept if set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Jar == nil {
			hc.Jar = c.http.Jar
		}
		c.http = hc
	}
}

// WithAPIKey sets the key sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// New creates a Client for the service rooted at baseURL.
func New(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse web url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("web url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Jar: jar, Timeout: defaultTimeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Cookies returns the cookies currently held for the service.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.base)
}

// ClearCookies forgets the current web session.
func (c *Client) ClearCookies() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	c.http.Jar = jar
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	u := *c.base
	rawPath, rawQuery, _ := strings.Cut(path, "?")
	u.Path = c.base.Path + rawPath
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return fmt.Errorf("parse query for %s: %w", path, err)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type authRequest struct {
	UniqueID uint32 `json:"unique_id"`
	Nonce    string `json:"nonce"`
}

type authResponse struct {
	Success bool `json:"success"`
}

// Authenticate exchanges the login nonce for web session cookies.
func (c *Client) Authenticate(ctx context.Context, uniqueID uint32, nonce string) (bool, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", authRequest{UniqueID: uniqueID, Nonce: nonce}, &resp)
	if errors.Is(err, ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if resp.Success {
		c.logger.Debug("Web session established", "cookies", len(c.Cookies()))
	}
	return resp.Success, nil
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// VerifySession asks whether the current cookies are still accepted.
func (c *Client) VerifySession(ctx context.Context) (bool, error) {
	var resp verifyResponse
	err := c.do(ctx, http.MethodGet, "/auth/verify", nil, &resp)
	if errors.Is(err, ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.Valid, nil
}
