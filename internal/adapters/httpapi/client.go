package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"catalogtree/internal/domain"
	"catalogtree/internal/ports"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned %d", e.StatusCode)
	}
	return fmt.Sprintf("remote returned %d: %s", e.StatusCode, e.Message)
}

// Client is an ItemProvider backed by a remote catalogtree server.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	rootName string
}

var (
	_ ports.ItemProvider = (*Client)(nil)
	_ ports.RootNamer    = (*Client)(nil)
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d, Transport: c.http.Transport}
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL:  u,
		http:     &http.Client{Timeout: 30 * time.Second},
		rootName: u.Host,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RootName returns the remote's root name, or its host when the server does
// not report one.
func (c *Client) RootName() string {
	return c.rootName
}

// Health checks the server and records its root name.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, HealthPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Root != "" {
		c.rootName = resp.Root
	}
	return &resp, nil
}

// ListChildren requests one page from the server.
func (c *Client) ListChildren(ctx context.Context, key, pageToken string, limit int) (domain.Page, error) {
	q := url.Values{}
	q.Set("key", key)
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}
	q.Set("limit", strconv.Itoa(limit))

	var resp ChildrenResponse
	if err := c.get(ctx, ChildrenPath, q, &resp); err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Items: resp.Items, NextPageToken: resp.NextPageToken}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var e ErrorResponse
		_ = json.Unmarshal(body, &e)
		return &StatusError{StatusCode: res.StatusCode, Message: e.Message}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
