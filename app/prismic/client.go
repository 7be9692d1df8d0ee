// Package prismic is a small client for the Prismic REST API v2.
//
// The client holds no state beyond its configuration: refs are resolved on
// every query and nothing is cached or retried. Failures are returned to the
// caller wrapped with the operation that produced them.
package prismic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spacetraveling/app/config"
)

// Well known document fields.
const (
	FieldType                 = "document.type"
	FieldID                   = "document.id"
	FieldFirstPublicationDate = "document.first_publication_date"
	FieldLastPublicationDate  = "document.last_publication_date"
)

const maxErrorBody = 512

// QueryOptions are the paging and ordering parameters of a search.
type QueryOptions struct {
	PageSize  int
	Page      int
	After     string
	Orderings []string
	// Ref pins the query to a release or preview; empty means the master ref.
	Ref string
}

// GetOptions are the parameters of single document lookups.
type GetOptions struct {
	Ref string
}

// Client talks to one content repository.
type Client struct {
	endpoint *url.URL
	token    string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the configured endpoint, e.g.
// https://spacetraveling.cdn.prismic.io/api/v2.
func NewClient(cfg config.CMS, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid content API endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid content API endpoint %q", cfg.Endpoint)
	}

	c := &Client{
		endpoint: u,
		token:    cfg.AccessToken,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MasterRef fetches the ref of the currently published content.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	u := *c.endpoint
	q := url.Values{}
	c.addToken(q)
	u.RawQuery = q.Encode()

	var api API
	if err := c.getJSON(ctx, u.String(), &api); err != nil {
		return "", fmt.Errorf("fetch API root: %w", err)
	}
	for _, r := range api.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", ErrNoMasterRef
}

// Query searches documents matching every predicate.
func (c *Client) Query(ctx context.Context, predicates []string, opts QueryOptions) (*Response, error) {
	ref, err := c.resolveRef(ctx, opts.Ref)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("ref", ref)
	if len(predicates) > 0 {
		q.Set("q", JoinPredicates(predicates))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.After != "" {
		q.Set("after", opts.After)
	}
	if len(opts.Orderings) > 0 {
		q.Set("orderings", JoinOrderings(opts.Orderings))
	}
	c.addToken(q)

	u := c.endpoint.JoinPath("documents", "search")
	u.RawQuery = q.Encode()

	var resp Response
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	return &resp, nil
}

// GetByUID returns the document of docType with the given UID.
func (c *Client) GetByUID(ctx context.Context, docType, uid string, opts GetOptions) (*Document, error) {
	return c.getSingle(ctx, At("my."+docType+".uid", uid), opts)
}

// GetByID returns the document with the given ID.
func (c *Client) GetByID(ctx context.Context, id string, opts GetOptions) (*Document, error) {
	return c.getSingle(ctx, At(FieldID, id), opts)
}

// FetchPage follows a next_page cursor returned by an earlier query. The cursor
// must be a search URL of the configured endpoint. A cursor without a ref reads
// the master ref.
func (c *Client) FetchPage(ctx context.Context, cursor string) (*Response, error) {
	u, err := c.searchURL(cursor)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	if q.Get("ref") == "" {
		ref, err := c.MasterRef(ctx)
		if err != nil {
			return nil, err
		}
		q.Set("ref", ref)
	}
	if q.Get("access_token") == "" {
		c.addToken(q)
	}
	u.RawQuery = q.Encode()

	var resp Response
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("fetch next page: %w", err)
	}
	return &resp, nil
}

// searchURL parses cursor and checks that it is the documents search URL of
// the configured endpoint.
func (c *Client) searchURL(cursor string) (*url.URL, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForeignCursor, err)
	}
	search := c.endpoint.JoinPath("documents", "search")
	if !strings.EqualFold(u.Scheme, search.Scheme) || !strings.EqualFold(u.Host, search.Host) ||
		strings.TrimSuffix(u.Path, "/") != search.Path {
		return nil, ErrForeignCursor
	}
	return u, nil
}

func (c *Client) getSingle(ctx context.Context, predicate string, opts GetOptions) (*Document, error) {
	resp, err := c.Query(ctx, []string{predicate}, QueryOptions{PageSize: 1, Ref: opts.Ref})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Results[0], nil
}

func (c *Client) resolveRef(ctx context.Context, ref string) (string, error) {
	if ref != "" {
		return ref, nil
	}
	return c.MasterRef(ctx)
}

func (c *Client) addToken(q url.Values) {
	if c.token != "" {
		q.Set("access_token", c.token)
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("content API request", "path", req.URL.Path)

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
