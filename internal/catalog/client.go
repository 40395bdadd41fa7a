// Package catalog fetches live offers from a JSON offer feed, one request per
// platform, and converts them into validated models.Offer values.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/pricewise/internal/logger"
	"github.com/rewired-gh/pricewise/internal/models"
)

// ErrAllPlatformsFailed is returned when no platform could be queried.
var ErrAllPlatformsFailed = errors.New("all platforms failed")

// Client provides access to the offer feed
type Client struct {
	baseURL    string
	platforms  []string
	maxResults int
	httpClient *http.Client
	config     ClientConfig
}

// ClientConfig holds retry and connection pool settings
type ClientConfig struct {
	MaxRetries          int
	RetryDelayBase      time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// OfferRecord is one offer as served by the feed
type OfferRecord struct {
	ProductID       string        `json:"product_id"`
	Name            string        `json:"name"`
	Platform        string        `json:"platform"`
	Price           float64       `json:"price"`
	OriginalPrice   *float64      `json:"original_price"`
	DiscountPercent float64       `json:"discount_percent"`
	InStock         bool          `json:"in_stock"`
	Rating          float64       `json:"rating"`
	ReviewCount     int           `json:"review_count"`
	URL             string        `json:"url"`
	Seller          *SellerRecord `json:"seller"`
}

// SellerRecord is the seller block of an OfferRecord
type SellerRecord struct {
	Name              string  `json:"name"`
	Rating            float64 `json:"rating"`
	TotalRatings      int     `json:"total_ratings"`
	PositivePercent   float64 `json:"positive_percent"`
	Verified          bool    `json:"verified"`
	OnTimeShipPercent float64 `json:"on_time_ship_percent"`
}

// NewClient creates a new feed client for the given platforms
func NewClient(baseURL string, platforms []string, maxResults int, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 20
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		platforms:  platforms,
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
				IdleConnTimeout:     cfg.IdleConnTimeout,
			},
		},
		config: cfg,
	}
}

// OffersFor queries every platform in parallel and returns the combined offers
// in platform order. A failing platform is logged and skipped; the call fails
// only when every platform fails.
func (c *Client) OffersFor(ctx context.Context, query string) ([]models.Offer, error) {
	results := make([][]models.Offer, len(c.platforms))
	errs := make([]error, len(c.platforms))

	var g errgroup.Group
	for i, platform := range c.platforms {
		g.Go(func() error {
			offers, err := c.FetchPlatform(ctx, platform, query)
			if err != nil {
				logger.Warn("Skipping platform %s for %q: %v", platform, query, err)
				errs[i] = err
				return nil
			}
			results[i] = offers
			return nil
		})
	}
	_ = g.Wait()

	var offers []models.Offer
	failed := 0
	for i := range c.platforms {
		if errs[i] != nil {
			failed++
			continue
		}
		offers = append(offers, results[i]...)
	}
	if len(c.platforms) > 0 && failed == len(c.platforms) {
		return nil, fmt.Errorf("%w: %w", ErrAllPlatformsFailed, errors.Join(errs...))
	}

	logger.Debug("Fetched %d offers for %q from %d/%d platforms", len(offers), query, len(c.platforms)-failed, len(c.platforms))
	return offers, nil
}

// FetchPlatform retrieves offers for query from one platform
func (c *Client) FetchPlatform(ctx context.Context, platform, query string) ([]models.Offer, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", c.maxResults))
	endpoint := fmt.Sprintf("%s/platforms/%s/search?%s", c.baseURL, url.PathEscape(platform), params.Encode())

	resp, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch offers: %w", err)
	}
	defer resp.Body.Close()

	var records []OfferRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}

	offers := make([]models.Offer, 0, len(records))
	for _, r := range records {
		offer := r.toOffer(platform)
		if err := offer.Validate(); err != nil {
			logger.Warn("Dropping invalid offer %q from %s: %v", r.ProductID, platform, err)
			continue
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

func (r OfferRecord) toOffer(platform string) models.Offer {
	offer := models.Offer{
		ProductID:       r.ProductID,
		Name:            r.Name,
		Platform:        r.Platform,
		Price:           r.Price,
		OriginalPrice:   r.OriginalPrice,
		DiscountPercent: r.DiscountPercent,
		InStock:         r.InStock,
		Rating:          r.Rating,
		ReviewCount:     r.ReviewCount,
		URL:             r.URL,
	}
	if offer.Platform == "" {
		offer.Platform = platform
	}
	if s := r.Seller; s != nil {
		offer.Seller = &models.SellerInfo{
			Name:              s.Name,
			Rating:            s.Rating,
			TotalRatings:      s.TotalRatings,
			PositivePercent:   s.PositivePercent,
			Verified:          s.Verified,
			OnTimeShipPercent: s.OnTimeShipPercent,
		}
	}
	return offer
}

// doRequest performs HTTP request with retry logic. Transport errors and 5xx
// responses are retried with linear backoff; other non-2xx responses are not.
func (c *Client) doRequest(ctx context.Context, endpoint string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.config.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * c.config.RetryDelayBase):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
