// Package osmrepair sanitizes raw OSM XML extracts before they are handed
// to the street geometry backend. Certain malformed inputs (ways that
// reference missing nodes, repeated non-adjacent vertices, near-zero
// length segments) are known to break downstream processing, so they are
// fixed locally or dropped rather than failing the whole tile.
//
// The repeat-vertex rule also removes the closing vertex of a closed way,
// so rings such as roundabouts come back as open polylines; the backend
// reconnects coincident endpoints itself.
package osmrepair

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"

	"github.com/paulmach/osm"
)

// epsilonDist is the minimum allowed segment length in degrees; anything
// shorter is collapsed.
const epsilonDist = 1e-5

// Report describes what Sanitize changed in an extract.
type Report struct {
	// Empty is true when the extract holds no OSM data at all. This is a
	// valid terminal state for a tile, not an error.
	Empty bool

	// RemovedWays lists ways dropped entirely.
	RemovedWays []int64

	// TrimmedWays lists ways kept after removing offending vertices.
	TrimmedWays []int64
}

// Changed reports whether any repair was applied.
func (r Report) Changed() bool {
	return len(r.RemovedWays) > 0 || len(r.TrimmedWays) > 0
}

// Sanitize parses a raw extract, repairs or drops malformed ways, and
// returns the cleaned extract ready for the backend. A parse failure means
// the extract is unrepairable and the tile should be excluded.
func Sanitize(raw []byte) ([]byte, Report, error) {
	var report Report

	if len(bytes.TrimSpace(raw)) == 0 {
		report.Empty = true
		return emptyExtract(), report, nil
	}

	var doc osm.OSM
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, report, fmt.Errorf("extract is not parseable OSM XML: %w", err)
	}

	if len(doc.Nodes) == 0 && len(doc.Ways) == 0 && len(doc.Relations) == 0 {
		report.Empty = true
		return emptyExtract(), report, nil
	}

	nodes := make(map[osm.NodeID][2]float64, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes[n.ID] = [2]float64{n.Lat, n.Lon}
	}

	kept := make(osm.Ways, 0, len(doc.Ways))
	for _, way := range doc.Ways {
		switch repaired, status := repairWay(way, nodes); status {
		case wayUnchanged:
			kept = append(kept, way)
		case wayTrimmed:
			report.TrimmedWays = append(report.TrimmedWays, int64(way.ID))
			kept = append(kept, repaired)
		case wayRemoved:
			report.RemovedWays = append(report.RemovedWays, int64(way.ID))
		}
	}
	doc.Ways = kept

	out, err := xml.Marshal(&doc)
	if err != nil {
		return nil, report, fmt.Errorf("failed to re-encode repaired extract: %w", err)
	}
	return withHeader(out), report, nil
}

type wayStatus int

const (
	wayUnchanged wayStatus = iota
	wayTrimmed
	wayRemoved
)

// repairWay applies the local fix-ups to a single way. A way referencing a
// node absent from the extract is dropped outright: its true geometry is
// unknowable from this tile alone. Repeat non-adjacent vertices and
// vertices ending near-zero-length segments are removed; if fewer than two
// vertices survive, the way is dropped.
func repairWay(way *osm.Way, nodes map[osm.NodeID][2]float64) (*osm.Way, wayStatus) {
	for _, nd := range way.Nodes {
		if _, ok := nodes[nd.ID]; !ok {
			return nil, wayRemoved
		}
	}

	seen := make(map[[2]float64]bool, len(way.Nodes))
	fixed := make(osm.WayNodes, 0, len(way.Nodes))
	var prev [2]float64

	for i, nd := range way.Nodes {
		coord := nodes[nd.ID]

		// Repeat non-adjacent point (adjacent repeats are allowed)
		if i > 0 && seen[coord] && coord != prev {
			prev = coord
			continue
		}

		// Near-zero-length segment: collapse onto the previous vertex
		if len(fixed) > 0 {
			last := nodes[fixed[len(fixed)-1].ID]
			if dist(last, coord) < epsilonDist {
				seen[coord] = true
				prev = coord
				continue
			}
		}

		seen[coord] = true
		prev = coord
		fixed = append(fixed, nd)
	}

	if len(fixed) < 2 {
		return nil, wayRemoved
	}
	if len(fixed) == len(way.Nodes) {
		return way, wayUnchanged
	}

	trimmed := *way
	trimmed.Nodes = fixed
	return &trimmed, wayTrimmed
}

func dist(a, b [2]float64) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

func emptyExtract() []byte {
	return withHeader([]byte(`<osm></osm>`))
}

func withHeader(body []byte) []byte {
	return append([]byte(xml.Header), body...)
}
