package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"product-views/internal/domain"
	"product-views/internal/metrics"
)

// Client reads products from the external REST catalog.
//
//	GET {base}/{id}                 one product
//	GET {base}                      every product
//	GET {base}?_page=n&_limit=m     one page
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog client. baseURL is the collection URL, e.g.
// https://fakestoreapi.com/products.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetProduct fetches one product.
// Returns domain.ErrNotFound for a 404 and domain.ErrUpstreamUnavailable for
// anything else that is not a decodable 2xx.
func (c *Client) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(productID)

	var product domain.Product
	if err := c.getJSON(ctx, "get", endpoint, &product); err != nil {
		return nil, err
	}

	// Some catalogs answer unknown ids with 200 and an empty body.
	if product.ID == 0 && product.Title == "" {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}

	return &product, nil
}

// ListProducts fetches the full collection.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getJSON(ctx, "list", c.baseURL, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListProductsPage fetches one page using the _page/_limit convention.
func (c *Client) ListProductsPage(ctx context.Context, page, limit int) ([]domain.Product, error) {
	q := url.Values{}
	q.Set("_page", strconv.Itoa(page))
	q.Set("_limit", strconv.Itoa(limit))

	var products []domain.Product
	if err := c.getJSON(ctx, "list_page", c.baseURL+"?"+q.Encode(), &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, dst any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.CatalogRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog %s: %w: %w", op, domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("catalog %s: %w", op, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("catalog %s: status %d: %w", op, resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("catalog %s: read body: %w: %w", op, domain.ErrUpstreamUnavailable, err)
	}

	// An empty 200 is how some catalogs say "no such product".
	if len(strings.TrimSpace(string(body))) == 0 {
		return fmt.Errorf("catalog %s: empty body: %w", op, domain.ErrNotFound)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("catalog %s: decode: %w: %w", op, domain.ErrUpstreamUnavailable, err)
	}

	return nil
}
