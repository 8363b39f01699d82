package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// VersionsTable holds one content version per replicated table.
	VersionsTable = "content_versions"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 4096
)

// Ensure Client implements the interface.
var _ driven.RemoteSource = (*Client)(nil)

// Config configures the REST client.
type Config struct {
	// URL is the REST endpoint root, e.g. https://xyz.supabase.co/rest/v1.
	URL string

	// APIKey is sent as the apikey header and as a bearer token.
	APIKey string

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client talks to a PostgREST endpoint.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a REST client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, domain.ErrRemoteNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: remote url %q", domain.ErrInvalidInput, cfg.URL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.APIKey != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"}),
			Base:   &apiKeyTransport{key: cfg.APIKey, base: http.DefaultTransport},
		}
	}

	return &Client{
		baseURL:     base,
		http:        &http.Client{Transport: transport, Timeout: timeout},
		rateLimiter: NewRateLimiter(cfg.RequestsPerSecond),
	}, nil
}

// apiKeyTransport adds the apikey header PostgREST gateways expect.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("apikey", t.key)
	return t.base.RoundTrip(req)
}

// FetchPage returns up to limit rows of table matching filter, ordered by
// (updated_at, id).
func (c *Client) FetchPage(
	ctx context.Context,
	table string,
	filter domain.PageFilter,
	limit int,
) ([]domain.RemoteRecord, error) {
	q := PageQuery(filter, limit)

	var rows []domain.RemoteRecord
	if err := c.getJSON(ctx, table, q, &rows); err != nil {
		return nil, fetchError(ctx, table, err)
	}
	return rows, nil
}

// PageQuery builds the query string selecting one page.
func PageQuery(filter domain.PageFilter, limit int) url.Values {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "updated_at.asc,id.asc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	// Top-level operands are taken verbatim; quotes are only unwrapped
	// inside logic trees and in() lists.
	ts := domain.FormatTime(filter.UpdatedAtGte)
	if filter.IDGt == "" {
		q.Set("updated_at", "gte."+ts)
	} else {
		qts := quote(ts)
		q.Set("or", fmt.Sprintf("(updated_at.gt.%s,and(updated_at.eq.%s,id.gt.%s))", qts, qts, quote(filter.IDGt)))
	}

	if len(filter.IDs) > 0 {
		ids := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			ids[i] = quote(id)
		}
		q.Set("id", "in.("+strings.Join(ids, ",")+")")
	}
	return q
}

// quote renders a value as a PostgREST double-quoted literal so reserved
// characters such as ',', '.', ':' and parentheses survive inside or=()
// and in.() operands.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// Count returns the exact number of rows in table.
func (c *Client) Count(ctx context.Context, table string) (int, error) {
	q := url.Values{}
	q.Set("select", "id")

	resp, err := c.do(ctx, http.MethodHead, table, q, map[string]string{"Prefer": "count=exact"})
	if err != nil {
		return 0, fetchError(ctx, table, err)
	}
	defer resp.Body.Close()

	n, err := ParseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, fetchError(ctx, table, err)
	}
	return n, nil
}

// ParseContentRange extracts the total from "0-24/3000" or "*/0".
func ParseContentRange(header string) (int, error) {
	_, total, ok := strings.Cut(header, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("postgrest: no exact count in Content-Range %q", header)
	}
	n, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("postgrest: invalid Content-Range %q", header)
	}
	return n, nil
}

// ContentVersion returns the version recorded for table in the versions
// table, or "" when the backend publishes no version for it.
func (c *Client) ContentVersion(ctx context.Context, table string) (string, error) {
	q := url.Values{}
	q.Set("select", "version")
	q.Set("table_name", "eq."+table)
	q.Set("limit", "1")

	var rows []struct {
		Version any `json:"version"`
	}
	err := c.getJSON(ctx, VersionsTable, q, &rows)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if err != nil {
		return "", fetchError(ctx, table, err)
	}
	if len(rows) == 0 || rows[0].Version == nil {
		return "", nil
	}
	return fmt.Sprint(rows[0].Version), nil
}

// getJSON performs a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// do sends one throttled request and converts non-2xx responses to errors.
// The caller closes the body of a successful response.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	q url.Values,
	headers map[string]string,
) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL.JoinPath(path)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if err := c.rateLimiter.CheckRateLimit(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiMessage(body, resp.Status),
			URL:        u.Redacted(),
		}
	}

	return resp, nil
}

// apiMessage extracts the message field of a PostgREST error body.
func apiMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return fallback
}
