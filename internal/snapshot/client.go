// Package snapshot pulls the authoritative token baseline over REST and
// keeps it fresh on a fixed interval. Incremental stream events patch
// whatever baseline the last successful fetch established.
package snapshot

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"token-dashboard/internal/domain"
)

// Client talks to the snapshot REST endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:8080/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ListQuery selects a page of the token listing.
type ListQuery struct {
	Page      int
	Limit     int
	Category  string
	Chain     string
	SortBy    string
	SortOrder string
}

// ListResponse is the paginated token listing.
type ListResponse struct {
	Tokens     []*domain.Token `json:"tokens"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
}

// Tokens fetches one page of the token listing.
func (c *Client) Tokens(ctx context.Context, q ListQuery) (*ListResponse, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Chain != "" {
		params.Set("chain", q.Chain)
	}
	if q.SortBy != "" {
		params.Set("sortBy", q.SortBy)
		order := q.SortOrder
		if order == "" {
			order = "desc"
		}
		params.Set("sortOrder", order)
	}

	var resp ListResponse
	if err := c.get(ctx, "/tokens", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Token fetches one token by id.
func (c *Client) Token(ctx context.Context, id string) (*domain.Token, error) {
	var tok domain.Token
	if err := c.get(ctx, "/tokens/"+url.PathEscape(id), nil, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Search returns tokens matching the query string.
func (c *Client) Search(ctx context.Context, query string) ([]*domain.Token, error) {
	params := url.Values{}
	params.Set("q", query)

	var resp struct {
		Tokens []*domain.Token `json:"tokens"`
	}
	if err := c.get(ctx, "/tokens/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}

// MarketStats fetches the aggregate market summary.
func (c *Client) MarketStats(ctx context.Context) (*domain.MarketStats, error) {
	var stats domain.MarketStats
	if err := c.get(ctx, "/market/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Orders lists the account's orders.
func (c *Client) Orders(ctx context.Context) ([]*domain.Order, error) {
	var resp struct {
		Orders []*domain.Order `json:"orders"`
	}
	if err := c.get(ctx, "/orders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// PlaceOrder submits an order over REST and returns the accepted order,
// including any terminal status the server assigned immediately.
func (c *Client) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	body, err := sonic.Marshal(order)
	if err != nil {
		return nil, errors.Wrap(err, "marshal order")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	var accepted domain.Order
	if err := c.do(req, &accepted); err != nil {
		return nil, err
	}
	return &accepted, nil
}

// Portfolio fetches the account's orders and positions.
func (c *Client) Portfolio(ctx context.Context) (*domain.Portfolio, error) {
	var p domain.Portfolio
	if err := c.get(ctx, "/portfolio", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errors.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "decode %s response", req.URL.Path)
	}
	return nil
}
