// Package streets wraps the external street geometry backend that turns a
// raw OSM extract into sidewalk, lane, and intersection geometry.
package streets

import (
	"context"

	"github.com/paulmach/orb/geojson"

	"kerbside/internal/model"
)

// Layer names the three geometry outputs the backend produces.
type Layer string

const (
	LayerNetwork       Layer = "network"
	LayerLanes         Layer = "lanes"
	LayerIntersections Layer = "intersections"
)

// Layers holds the three per-tile geometry collections. A collection is
// never partially produced: either the whole set exists (possibly with
// empty collections) or the tile failed.
type Layers struct {
	Network       *geojson.FeatureCollection `json:"network"`
	Lanes         *geojson.FeatureCollection `json:"lanes"`
	Intersections *geojson.FeatureCollection `json:"intersections"`
}

// EmptyLayers returns a Layers value with three empty collections, the
// result of processing a tile that holds no street data.
func EmptyLayers() *Layers {
	return &Layers{
		Network:       geojson.NewFeatureCollection(),
		Lanes:         geojson.NewFeatureCollection(),
		Intersections: geojson.NewFeatureCollection(),
	}
}

// Backend converts one sanitized OSM extract into street geometry. The
// conversion is an opaque external call with unpredictable failure modes;
// callers must treat any invocation as failure-prone and bound its
// runtime via the context.
type Backend interface {
	Convert(ctx context.Context, rawOSM []byte, opts model.RenderOptions) (*Layers, error)
}
