package grid

import (
	"fmt"
	"math"

	"kerbside/internal/model"
)

// sizeEpsilon absorbs float drift so a tile size exactly equal to the
// bounding box span still yields a single tile instead of a rejection or
// a sliver row.
const sizeEpsilon = 1e-9

// Plan partitions the area's bounding box into a row-major grid of tiles
// of the requested size in degrees. Edge tiles are clipped to the area
// boundary so the union of tile bounds equals the input bound exactly.
// Deterministic: identical inputs produce an identical, identically
// ordered tile sequence.
func Plan(area model.Area, tileSize float64) ([]model.Tile, error) {
	b := area.Bound
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size must be positive, got %g", model.ErrInvalidConfig, tileSize)
	}
	maxSpan := math.Max(b.LatSpan(), b.LonSpan())
	if tileSize > maxSpan*(1+sizeEpsilon) {
		return nil, fmt.Errorf("%w: tile size %g exceeds bounding box span %g", model.ErrInvalidConfig, tileSize, maxSpan)
	}

	rows := steps(b.LatSpan(), tileSize)
	cols := steps(b.LonSpan(), tileSize)

	tiles := make([]model.Tile, 0, rows*cols)
	for row := 0; row < rows; row++ {
		minLat := b.MinLat + float64(row)*tileSize
		maxLat := math.Min(minLat+tileSize, b.MaxLat)
		if row == rows-1 {
			maxLat = b.MaxLat // clip the last row to the boundary exactly
		}

		for col := 0; col < cols; col++ {
			minLon := b.MinLon + float64(col)*tileSize
			maxLon := math.Min(minLon+tileSize, b.MaxLon)
			if col == cols-1 {
				maxLon = b.MaxLon
			}

			tiles = append(tiles, model.Tile{
				AreaID: area.OSMID,
				Row:    row,
				Col:    col,
				Bound: model.BoundingBox{
					MinLat: minLat,
					MaxLat: maxLat,
					MinLon: minLon,
					MaxLon: maxLon,
				},
				Size: tileSize,
			})
		}
	}
	return tiles, nil
}

// steps returns how many tiles of the given size cover a span, tolerating
// float drift when the span is a near-exact multiple of the size.
func steps(span, size float64) int {
	n := int(math.Ceil(span/size - sizeEpsilon))
	if n < 1 {
		n = 1
	}
	return n
}
