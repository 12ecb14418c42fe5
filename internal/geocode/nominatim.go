package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kerbside/internal/model"
)

// Geocoder resolves a free-form place name to an area.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (model.Area, error)
}

// NominatimClient is a Geocoder backed by a Nominatim search endpoint.
type NominatimClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatimClient creates a client for the given Nominatim base URL.
func NewNominatimClient(baseURL, userAgent string) *NominatimClient {
	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// nominatimPlace is the subset of the Nominatim search response we use.
// boundingbox comes back as [min_lat, max_lat, min_lon, max_lon] strings.
type nominatimPlace struct {
	OSMID       int64    `json:"osm_id"`
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
}

// Geocode queries Nominatim for the best match of the given place name.
func (c *NominatimClient) Geocode(ctx context.Context, name string) (model.Area, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return model.Area{}, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.Area{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Area{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Area{}, fmt.Errorf("failed to read geocode response: %w", err)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return model.Area{}, fmt.Errorf("failed to parse geocode response: %w", err)
	}
	if len(places) == 0 {
		return model.Area{}, fmt.Errorf("%w: no match for %q", model.ErrResolution, name)
	}

	place := places[0]
	if place.OSMID == 0 {
		return model.Area{}, fmt.Errorf("%w: no OSM id for %q", model.ErrResolution, name)
	}
	if len(place.BoundingBox) != 4 {
		return model.Area{}, fmt.Errorf("%w: malformed bounding box for %q", model.ErrResolution, name)
	}

	var coords [4]float64
	for i, s := range place.BoundingBox {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Area{}, fmt.Errorf("%w: bad bounding box value %q", model.ErrResolution, s)
		}
		coords[i] = v
	}

	area := model.Area{
		OSMID: place.OSMID,
		Name:  name,
		Bound: model.BoundingBox{
			MinLat: coords[0],
			MaxLat: coords[1],
			MinLon: coords[2],
			MaxLon: coords[3],
		},
	}
	if err := area.Bound.Validate(); err != nil {
		return model.Area{}, fmt.Errorf("%w: %v", model.ErrResolution, err)
	}
	return area, nil
}
