package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/store"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.notion.com"

	// DefaultVersion is the API version sent in the Notion-Version header.
	DefaultVersion = "2022-06-28"

	// DefaultTimeout bounds a single HTTP round-trip.
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the largest page the query endpoint returns.
	MaxPageSize = 100
)

// Config configures a Client.
type Config struct {
	Token    string
	BaseURL  string
	Version  string
	PageSize int
	Timeout  time.Duration

	// ModifiedField names a last_edited_time property to read LastModified
	// from. When empty, or when a page lacks the property, the page's own
	// last_edited_time is used.
	ModifiedField string
}

// Client is a store.RecordStore backed by the Notion API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ store.RecordStore = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. The configured timeout is not
// applied to a client passed this way.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client. The token is required; other fields default.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("notion: token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.PageSize <= 0 || cfg.PageSize > MaxPageSize {
		cfg.PageSize = MaxPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// page is the subset of a page object the client reads.
type page struct {
	Object         string            `json:"object"`
	ID             string            `json:"id"`
	LastEditedTime time.Time         `json:"last_edited_time"`
	Archived       bool              `json:"archived"`
	InTrash        bool              `json:"in_trash"`
	Properties     record.Properties `json:"properties"`
}

type queryRequest struct {
	StartCursor string       `json:"start_cursor,omitempty"`
	PageSize    int          `json:"page_size,omitempty"`
	Filter      *queryFilter `json:"filter,omitempty"`
}

type queryFilter struct {
	Property string       `json:"property"`
	RichText *textMatcher `json:"rich_text,omitempty"`
}

type textMatcher struct {
	Contains string `json:"contains"`
}

type queryResponse struct {
	Results    []page  `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

type createRequest struct {
	Parent     parent            `json:"parent"`
	Properties record.Properties `json:"properties"`
}

type updateRequest struct {
	Properties record.Properties `json:"properties"`
}

// QueryPage implements store.RecordStore.
func (c *Client) QueryPage(ctx context.Context, collection, cursor string) (store.Page, error) {
	resp, err := c.query(ctx, collection, queryRequest{StartCursor: cursor, PageSize: c.cfg.PageSize})
	if err != nil {
		return store.Page{}, err
	}

	out := store.Page{HasMore: resp.HasMore, NextCursor: resp.NextCursor}
	for _, p := range resp.Results {
		out.Records = append(out.Records, c.toRecord(p))
	}
	return out, nil
}

// QueryFiltered implements store.RecordStore. Every result page is read.
func (c *Client) QueryFiltered(ctx context.Context, collection string, filter store.TextFilter) ([]record.Record, error) {
	req := queryRequest{
		PageSize: c.cfg.PageSize,
		Filter: &queryFilter{
			Property: filter.Field,
			RichText: &textMatcher{Contains: filter.Contains},
		},
	}

	var out []record.Record
	for {
		resp, err := c.query(ctx, collection, req)
		if err != nil {
			return nil, err
		}
		for _, p := range resp.Results {
			out = append(out, c.toRecord(p))
		}
		if !resp.HasMore || resp.NextCursor == nil {
			return out, nil
		}
		req.StartCursor = *resp.NextCursor
	}
}

// GetRecord implements store.RecordStore. Archived and trashed pages are
// reported as store.ErrNotFound.
func (c *Client) GetRecord(ctx context.Context, id string) (record.Record, error) {
	var p page
	if err := c.do(ctx, http.MethodGet, "/v1/pages/"+url.PathEscape(id), nil, &p); err != nil {
		return record.Record{}, fmt.Errorf("get page %s: %w", id, err)
	}
	if p.Archived || p.InTrash {
		return record.Record{}, fmt.Errorf("get page %s: archived: %w", id, store.ErrNotFound)
	}
	return c.toRecord(p), nil
}

// CreateRecord implements store.RecordStore.
func (c *Client) CreateRecord(ctx context.Context, collection string, props record.Properties) (record.Record, error) {
	body := createRequest{Parent: parent{DatabaseID: collection}, Properties: props}

	var p page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", body, &p); err != nil {
		return record.Record{}, fmt.Errorf("create page in %s: %w", collection, err)
	}
	return c.toRecord(p), nil
}

// UpdateRecord implements store.RecordStore.
func (c *Client) UpdateRecord(ctx context.Context, id string, props record.Properties) (record.Record, error) {
	var p page
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(id), updateRequest{Properties: props}, &p); err != nil {
		return record.Record{}, fmt.Errorf("update page %s: %w", id, err)
	}
	return c.toRecord(p), nil
}

func (c *Client) query(ctx context.Context, collection string, req queryRequest) (queryResponse, error) {
	var resp queryResponse
	path := "/v1/databases/" + url.PathEscape(collection) + "/query"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return queryResponse{}, fmt.Errorf("query database %s: %w", collection, err)
	}
	return resp, nil
}

// toRecord converts a page, reading LastModified from the configured
// property when the page carries it.
func (c *Client) toRecord(p page) record.Record {
	rec := record.Record{
		ID:           p.ID,
		LastModified: p.LastEditedTime.UTC(),
		Properties:   p.Properties,
	}
	if rec.Properties == nil {
		rec.Properties = record.Properties{}
	}
	if c.cfg.ModifiedField == "" {
		return rec
	}
	if t, ok := lastEditedProperty(p.Properties[c.cfg.ModifiedField]); ok {
		rec.LastModified = t
	}
	return rec
}

// lastEditedProperty extracts the instant from a last_edited_time property.
func lastEditedProperty(v record.Value) (time.Time, bool) {
	u, ok := v.(record.Unsupported)
	if !ok || u.Type != "last_edited_time" {
		return time.Time{}, false
	}
	var payload struct {
		LastEditedTime time.Time `json:"last_edited_time"`
	}
	if err := json.Unmarshal(u.Raw, &payload); err != nil || payload.LastEditedTime.IsZero() {
		return time.Time{}, false
	}
	return payload.LastEditedTime.UTC(), true
}

// do sends one request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Notion-Version", c.cfg.Version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("notion request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
