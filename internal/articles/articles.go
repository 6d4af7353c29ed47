// Package articles is the HTTP client for the backing article store.
package articles

import (
	"bytes"
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

	"updater/internal/core"
	"updater/internal/logger"
)

// Defaults for Options.
const (
	DefaultPerPage  = 50
	DefaultMaxPages = 10
	DefaultTimeout  = 60 * time.Second
)

// ErrNoArticles is returned by Latest when the store is empty.
var ErrNoArticles = errors.New("no articles found")

// StoreError reports a failed store call, including non-2xx responses.
type StoreError struct {
	Op     string // Operation, e.g. "create"
	Status int    // HTTP status, 0 for transport failures
	Body   string // Truncated response body
	Err    error  // Underlying transport or decode error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s failed with status %d: %s", e.Op, e.Status, e.Body)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// Options configures a Client.
type Options struct {
	BaseURL    string // e.g. http://127.0.0.1:8000
	PathPrefix string // e.g. /api
	PerPage    int
	MaxPages   int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the store's /articles resource.
type Client struct {
	endpoint string
	perPage  int
	maxPages int
	http     *http.Client
}

// New creates a store client.
func New(opts Options) *Client {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	prefix := "/" + strings.Trim(opts.PathPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Client{
		endpoint: strings.TrimSuffix(opts.BaseURL, "/") + prefix + "/articles",
		perPage:  opts.PerPage,
		maxPages: opts.MaxPages,
		http:     client,
	}
}

// Page is one page of the store's paginated index.
type Page struct {
	Data        []core.ArticleRecord `json:"data"`
	CurrentPage int                  `json:"current_page"`
	NextPageURL *string              `json:"next_page_url"`
	Total       int                  `json:"total"`
}

// HasNext reports whether the store advertises another page.
func (p Page) HasNext() bool {
	return p.NextPageURL != nil && *p.NextPageURL != ""
}

// ListPage fetches one page of the index, newest first.
func (c *Client) ListPage(ctx context.Context, page, perPage int) (Page, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	params.Set("per_page", strconv.Itoa(perPage))

	var out Page
	if err := c.do(ctx, "list", http.MethodGet, c.endpoint+"?"+params.Encode(), nil, &out); err != nil {
		return Page{}, err
	}
	return out, nil
}

// ListAll walks the index until the store reports no next page or the page cap is reached.
func (c *Client) ListAll(ctx context.Context) ([]core.ArticleRecord, error) {
	var all []core.ArticleRecord
	for page := 1; page <= c.maxPages; page++ {
		p, err := c.ListPage(ctx, page, c.perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
		if !p.HasNext() {
			return all, nil
		}
	}
	logger.Warn("Article listing truncated at page cap", "max_pages", c.maxPages, "fetched", len(all))
	return all, nil
}

// Latest returns the newest article by publication date.
func (c *Client) Latest(ctx context.Context) (core.ArticleRecord, error) {
	p, err := c.ListPage(ctx, 0, 1)
	if err != nil {
		return core.ArticleRecord{}, err
	}
	if len(p.Data) == 0 {
		return core.ArticleRecord{}, ErrNoArticles
	}
	return p.Data[0], nil
}

// Get fetches one article.
func (c *Client) Get(ctx context.Context, id int64) (core.ArticleRecord, error) {
	var out core.ArticleRecord
	err := c.do(ctx, "get", http.MethodGet, c.itemURL(id), nil, &out)
	return out, err
}

// Create stores a new article and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, rec core.ArticleRecord) (core.ArticleRecord, error) {
	rec.ID = 0
	var out core.ArticleRecord
	err := c.do(ctx, "create", http.MethodPost, c.endpoint, rec, &out)
	return out, err
}

// Update replaces the fields of article id with those of rec.
func (c *Client) Update(ctx context.Context, id int64, rec core.ArticleRecord) (core.ArticleRecord, error) {
	rec.ID = 0
	var out core.ArticleRecord
	err := c.do(ctx, "update", http.MethodPatch, c.itemURL(id), rec, &out)
	return out, err
}

// Delete removes article id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, c.itemURL(id), nil, nil)
}

func (c *Client) itemURL(id int64) string {
	return c.endpoint + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &StoreError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &StoreError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &StoreError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StoreError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &StoreError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
