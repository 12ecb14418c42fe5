package streets

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Drop records one feature excluded during validation.
type Drop struct {
	Layer  Layer
	Reason string
}

// ValidateLayers checks every feature of every layer and drops invalid
// features individually, leaving the rest of the tile intact. Returns the
// cleaned layers and the list of drops for the failure log.
func ValidateLayers(layers *Layers) (*Layers, []Drop) {
	var drops []Drop

	clean := &Layers{}
	clean.Network = validateCollection(LayerNetwork, layers.Network, &drops)
	clean.Lanes = validateCollection(LayerLanes, layers.Lanes, &drops)
	clean.Intersections = validateCollection(LayerIntersections, layers.Intersections, &drops)
	return clean, drops
}

func validateCollection(layer Layer, fc *geojson.FeatureCollection, drops *[]Drop) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}
	for _, f := range fc.Features {
		if reason := checkFeature(layer, f); reason != "" {
			*drops = append(*drops, Drop{Layer: layer, Reason: reason})
			continue
		}
		out.Append(f)
	}
	return out
}

// checkFeature returns a non-empty reason when the feature must be
// excluded: empty geometry, a geometry type foreign to its layer,
// non-finite coordinates, or a line collapsed to a single point.
func checkFeature(layer Layer, f *geojson.Feature) string {
	if f == nil || f.Geometry == nil {
		return "empty geometry"
	}

	if !typeAllowed(layer, f.Geometry) {
		return fmt.Sprintf("unexpected geometry type %s", f.Geometry.GeoJSONType())
	}

	points := collectPoints(f.Geometry)
	if len(points) == 0 {
		return "geometry has no coordinates"
	}
	for _, p := range points {
		if !finite(p[0]) || !finite(p[1]) {
			return "non-finite coordinate"
		}
	}

	if lineLike(f.Geometry) && collapsed(points) {
		return "line collapsed to a point"
	}
	return ""
}

// typeAllowed enforces the layer conventions: line-like geometry for the
// street network, polygons for lane areas, points or polygons for
// intersection markings.
func typeAllowed(layer Layer, g orb.Geometry) bool {
	switch layer {
	case LayerNetwork:
		switch g.(type) {
		case orb.LineString, orb.MultiLineString:
			return true
		}
	case LayerLanes:
		switch g.(type) {
		case orb.Polygon, orb.MultiPolygon:
			return true
		}
	case LayerIntersections:
		switch g.(type) {
		case orb.Point, orb.MultiPoint, orb.Polygon, orb.MultiPolygon:
			return true
		}
	}
	return false
}

func lineLike(g orb.Geometry) bool {
	switch g.(type) {
	case orb.LineString, orb.MultiLineString:
		return true
	}
	return false
}

// collapsed reports whether every vertex is coincident with the first.
func collapsed(points []orb.Point) bool {
	if len(points) < 2 {
		return true
	}
	first := points[0]
	for _, p := range points[1:] {
		if p != first {
			return false
		}
	}
	return true
}

func collectPoints(g orb.Geometry) []orb.Point {
	var points []orb.Point
	switch geom := g.(type) {
	case orb.Point:
		points = append(points, geom)
	case orb.MultiPoint:
		points = append(points, geom...)
	case orb.LineString:
		points = append(points, geom...)
	case orb.MultiLineString:
		for _, ls := range geom {
			points = append(points, ls...)
		}
	case orb.Ring:
		points = append(points, geom...)
	case orb.Polygon:
		for _, ring := range geom {
			points = append(points, ring...)
		}
	case orb.MultiPolygon:
		for _, poly := range geom {
			for _, ring := range poly {
				points = append(points, ring...)
			}
		}
	case orb.Collection:
		for _, sub := range geom {
			points = append(points, collectPoints(sub)...)
		}
	case orb.Bound:
		points = append(points, geom.Min, geom.Max)
	}
	return points
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
