// Package client calls the catalog HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crisprcatalog/internal/export"
	"crisprcatalog/pkg/domain"
)

const (
	pathogensPath = "/api/pathogens"
	searchPath    = pathogensPath + "/search"
	exportPath    = pathogensPath + "/export"

	warningsHeader = "X-Catalog-Warnings"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

// APIError is a non-2xx response. Message carries the server's error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog api: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("catalog api: %d: %s", e.Status, e.Message)
}

// Client talks to a catalog API at a base URL.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New parses baseURL and returns a client for it.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must be http or https", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.base.String() }

// List fetches every pathogen.
func (c *Client) List(ctx context.Context) ([]domain.Pathogen, error) {
	var out []domain.Pathogen
	if _, err := c.do(ctx, http.MethodGet, pathogensPath, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search fetches pathogens whose name contains term. A blank term lists
// everything, since the API rejects an empty name.
func (c *Client) Search(ctx context.Context, term string) ([]domain.Pathogen, error) {
	if strings.TrimSpace(term) == "" {
		return c.List(ctx)
	}
	var out []domain.Pathogen
	q := url.Values{"name": {term}}
	if _, err := c.do(ctx, http.MethodGet, searchPath, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create submits p and returns the stored record together with any
// non-blocking warnings the server reported.
func (c *Client) Create(ctx context.Context, p domain.Pathogen) (domain.Pathogen, []string, error) {
	draft := p.Draft()
	if draft.Targets == nil {
		draft.Targets = []domain.TargetSite{}
	}
	body, err := json.Marshal(draft)
	if err != nil {
		return domain.Pathogen{}, nil, fmt.Errorf("encode pathogen: %w", err)
	}
	var created domain.Pathogen
	header, err := c.do(ctx, http.MethodPost, pathogensPath, nil, body, &created)
	if err != nil {
		return domain.Pathogen{}, nil, err
	}
	return created, splitWarnings(header.Get(warningsHeader)), nil
}

// Export streams a catalog export in format f to w.
func (c *Client) Export(ctx context.Context, f export.Format, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, exportPath, url.Values{"format": {string(f)}}, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("export request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body []byte) (*http.Request, error) {
	u := c.base.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, out any) (http.Header, error) {
	req, err := c.newRequest(ctx, method, path, q, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.Header, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func splitWarnings(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, "; ") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
