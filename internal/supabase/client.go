// Package supabase implements the record store over the Supabase PostgREST API.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config configures the PostgREST client.
type Config struct {
	ProjectURL string
	APIKey     string
	Timeout    time.Duration
}

// Client is a thin PostgREST client. Every request carries the service key.
type Client struct {
	http *resty.Client
}

// APIError is returned for non-2xx PostgREST responses.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Body)
}

// NewClient creates a PostgREST client rooted at <ProjectURL>/rest/v1.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.ProjectURL, "/")+"/rest/v1").
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", cfg.APIKey).
		SetAuthToken(cfg.APIKey)

	return &Client{http: rc}, nil
}

// Filter is a set of PostgREST query parameters, e.g. {"id": "eq.5"}.
type Filter map[string]string

func (c *Client) request(ctx context.Context, q Filter) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if len(q) > 0 {
		req.SetQueryParams(q)
	}
	return req
}

// Select fetches rows from table into out.
func (c *Client) Select(ctx context.Context, table string, q Filter, out any) error {
	resp, err := c.request(ctx, q).SetResult(out).Get("/" + table)
	return checkResponse(resp, err)
}

// Insert posts body to table and decodes the created rows into out.
func (c *Client) Insert(ctx context.Context, table string, body any, out any) error {
	resp, err := c.request(ctx, nil).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		SetResult(out).
		Post("/" + table)
	return checkResponse(resp, err)
}

// Update patches every row matching q and decodes the changed rows into out.
func (c *Client) Update(ctx context.Context, table string, q Filter, body any, out any) error {
	resp, err := c.request(ctx, q).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		SetResult(out).
		Patch("/" + table)
	return checkResponse(resp, err)
}

// Delete removes every row matching q and decodes the removed rows into out.
func (c *Client) Delete(ctx context.Context, table string, q Filter, out any) error {
	req := c.request(ctx, q).SetHeader("Prefer", "return=representation")
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Delete("/" + table)
	return checkResponse(resp, err)
}

// Count returns the exact number of rows matching q.
func (c *Client) Count(ctx context.Context, table string, q Filter) (int, error) {
	params := Filter{"select": "id", "limit": "1"}
	for k, v := range q {
		params[k] = v
	}
	resp, err := c.request(ctx, params).SetHeader("Prefer", "count=exact").Get("/" + table)
	if err := checkResponse(resp, err); err != nil {
		return 0, err
	}
	// Content-Range: 0-0/42 or */0
	cr := resp.Header().Get("Content-Range")
	i := strings.LastIndexByte(cr, '/')
	if i < 0 {
		return 0, fmt.Errorf("supabase: missing count in Content-Range %q", cr)
	}
	return strconv.Atoi(cr[i+1:])
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

func isConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}
