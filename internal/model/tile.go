package model

import "fmt"

// Tile is one grid cell of an area's bounding box, the unit of download
// and processing. The set of tiles for an area exactly covers the area
// bound: edge tiles are clipped to the boundary, interior tiles share
// edges with their neighbours.
type Tile struct {
	AreaID int64
	Row    int
	Col    int
	Bound  BoundingBox
	Size   float64 // requested tile size in degrees
}

// Key returns the stable on-disk identifier for the tile within its area.
func (t Tile) Key() string {
	return fmt.Sprintf("%d_%d", t.Row, t.Col)
}
