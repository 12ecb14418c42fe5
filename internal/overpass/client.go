package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"kerbside/internal/model"
)

// queryTemplate selects highway ways (with their nodes) inside a bounding
// box, excluding non-traversable highway values.
const queryTemplate = `
[out:xml];
(
way["highway"]["area"!~"yes"]["highway"!~"abandoned|construction|no|planned|platform|proposed|raceway|razed"]
(%v, %v, %v, %v);
>;);
out;
`

// Client fetches raw OSM extracts from an Overpass API endpoint. Requests
// are rate limited to stay polite toward the public instances.
type Client struct {
	url       string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewClient creates an Overpass client limited to rps requests per second.
func NewClient(url, userAgent string, rps float64) *Client {
	return &Client{
		url:       url,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 3 * time.Minute},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Extract downloads the street-network extract for one tile bound.
func (c *Client) Extract(ctx context.Context, bound model.BoundingBox) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	// %v keeps the full coordinate precision so tile edges line up with
	// the planned grid instead of rounding to six decimals.
	query := fmt.Sprintf(queryTemplate, bound.MinLat, bound.MinLon, bound.MaxLat, bound.MaxLon)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to build Overpass request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Overpass returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Overpass response: %w", err)
	}
	return data, nil
}
