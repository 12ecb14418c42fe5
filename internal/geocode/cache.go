package geocode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kerbside/internal/model"
)

// cacheEntry mirrors the on-disk layout: osmid plus the bounding box as
// [min_lat, max_lat, min_lon, max_lon].
type cacheEntry struct {
	OSMID       int64      `json:"osmid"`
	BoundingBox [4]float64 `json:"boundingbox"`
}

// Cache is the persisted location-name → area mapping. The whole mapping
// is loaded at construction and rewritten atomically on every store, so a
// failed write never destroys previously cached entries.
type Cache struct {
	path    string
	entries map[string]cacheEntry
}

// NormalizeName canonicalizes a location name for use as a cache key.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// OpenCache loads the cache file at path, creating an empty cache if the
// file does not exist yet.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]cacheEntry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read location cache: %w", err)
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("failed to parse location cache %s: %w", path, err)
	}
	return c, nil
}

// Lookup returns the cached area for a location name, if present.
func (c *Cache) Lookup(name string) (model.Area, bool) {
	e, ok := c.entries[NormalizeName(name)]
	if !ok {
		return model.Area{}, false
	}
	return model.Area{
		OSMID: e.OSMID,
		Name:  name,
		Bound: model.BoundingBox{
			MinLat: e.BoundingBox[0],
			MaxLat: e.BoundingBox[1],
			MinLon: e.BoundingBox[2],
			MaxLon: e.BoundingBox[3],
		},
	}, true
}

// Store adds an area under the normalized name and rewrites the cache file.
func (c *Cache) Store(name string, area model.Area) error {
	c.entries[NormalizeName(name)] = cacheEntry{
		OSMID: area.OSMID,
		BoundingBox: [4]float64{
			area.Bound.MinLat,
			area.Bound.MaxLat,
			area.Bound.MinLon,
			area.Bound.MaxLon,
		},
	}
	return c.flush()
}

// flush writes the whole mapping to a temporary file and renames it into
// place, so readers never observe a partially written cache.
func (c *Cache) flush() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal location cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write location cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace location cache: %w", err)
	}
	return nil
}
