package model

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// BoundingBox is a geographic rectangle in WGS84 degrees.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// LatSpan returns the latitude extent of the box in degrees.
func (b BoundingBox) LatSpan() float64 {
	return b.MaxLat - b.MinLat
}

// LonSpan returns the longitude extent of the box in degrees.
func (b BoundingBox) LonSpan() float64 {
	return b.MaxLon - b.MinLon
}

// Validate checks that the box has positive extent and finite coordinates.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounding box has non-finite coordinate")
		}
	}
	if b.LatSpan() <= 0 || b.LonSpan() <= 0 {
		return fmt.Errorf("bounding box has non-positive extent: %+v", b)
	}
	return nil
}

// ToOrb converts the box to an orb.Bound (lon/lat point order).
func (b BoundingBox) ToOrb() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Area is a geocoded place: an OSM identifier plus its bounding box.
// Immutable once resolved.
type Area struct {
	OSMID int64
	Name  string
	Bound BoundingBox
}
