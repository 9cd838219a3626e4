// Package catalog reads products from the upstream catalog API. The catalog
// is remote and read-only; nothing in here mutates it.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/k1shan-k/lsspoing/pkg/errors"
	"github.com/k1shan-k/lsspoing/pkg/httpclient"

	"github.com/k1shan-k/lsspoing/internal/domain"
)

// HTTPDoer is the interface for executing HTTP requests.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

// Client reads from the remote product catalog.
type Client struct {
	httpClient HTTPDoer
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a catalog client against the given base URL.
func NewClient(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return apperrors.NetworkUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, "catalog")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

// List returns a page of products.
func (c *Client) List(ctx context.Context, limit, skip int) (*ProductPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page ProductPage
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns a single product by its catalog id.
func (c *Client) Get(ctx context.Context, id int) (*domain.Product, error) {
	var product domain.Product
	if err := c.getJSON(ctx, "/products/"+strconv.Itoa(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ByCategory returns all products in a category.
func (c *Client) ByCategory(ctx context.Context, category string) (*ProductPage, error) {
	var page ProductPage
	if err := c.getJSON(ctx, "/products/category/"+url.PathEscape(category), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Search returns products matching a free-text query.
func (c *Client) Search(ctx context.Context, query string) (*ProductPage, error) {
	var page ProductPage
	if err := c.getJSON(ctx, "/products/search?q="+url.QueryEscape(query), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Categories returns the list of category slugs known to the catalog.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.getJSON(ctx, "/products/category-list", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
