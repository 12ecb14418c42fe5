package geocode

import (
	"context"
	"errors"
	"fmt"
	"log"

	"kerbside/internal/model"
)

// Resolver turns place names into areas, consulting the persistent cache
// before falling back to the geocoder.
type Resolver struct {
	geocoder Geocoder
	cache    *Cache
}

// NewResolver wires a geocoder to a location cache.
func NewResolver(geocoder Geocoder, cache *Cache) *Resolver {
	return &Resolver{geocoder: geocoder, cache: cache}
}

// Resolve returns the area for a location name. A cache hit never touches
// the geocoder; a miss queries it and stores the result before returning.
func (r *Resolver) Resolve(ctx context.Context, name string) (model.Area, error) {
	if area, ok := r.cache.Lookup(name); ok {
		log.Printf("Using cached area %d for %q", area.OSMID, name)
		return area, nil
	}

	log.Printf("Querying geocoder for %q...", name)
	area, err := r.geocoder.Geocode(ctx, name)
	if err != nil {
		if errors.Is(err, model.ErrResolution) {
			return model.Area{}, err
		}
		return model.Area{}, fmt.Errorf("%w: %v", model.ErrResolution, err)
	}

	if err := r.cache.Store(name, area); err != nil {
		return model.Area{}, fmt.Errorf("failed to cache area for %q: %w", name, err)
	}
	return area, nil
}
