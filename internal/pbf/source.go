// Package pbf provides an offline raw-data source backed by a local OSM
// PBF file. The file is decoded once into an in-memory node table and an
// R-tree of highway ways; per-tile extracts are then sliced out of the
// index without any network access.
package pbf

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"runtime"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/qedus/osmpbf"

	"kerbside/internal/model"
)

// excludedHighways mirrors the Overpass query's highway filter.
var excludedHighways = regexp.MustCompile(`^(abandoned|construction|no|planned|platform|proposed|raceway|razed)$`)

// indexedWay is a highway way with its bounding rectangle for R-tree
// indexing.
type indexedWay struct {
	id      int64
	tags    map[string]string
	nodeIDs []int64
	rect    rtreego.Rect
}

// Bounds implements the rtreego.Spatial interface
func (w *indexedWay) Bounds() rtreego.Rect {
	return w.rect
}

// Source serves per-tile extracts from a decoded PBF file.
type Source struct {
	nodes map[int64]orb.Point
	tree  *rtreego.Rtree
}

// Open decodes the PBF file at path. Two passes over the file: the first
// collects all node coordinates, the second indexes highway ways.
func Open(path string) (*Source, error) {
	log.Printf("Loading PBF file: %s", path)

	s := &Source{
		nodes: make(map[int64]orb.Point),
		tree:  rtreego.NewTree(2, 25, 50),
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PBF file: %w", err)
	}
	defer file.Close()

	if err := s.collectNodes(newDecoder(file)); err != nil {
		return nil, err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind PBF file: %w", err)
	}

	if err := s.indexWays(newDecoder(file)); err != nil {
		return nil, err
	}
	return s, nil
}

func newDecoder(file *os.File) *osmpbf.Decoder {
	decoder := osmpbf.NewDecoder(file)
	decoder.SetBufferSize(osmpbf.MaxBlobSize)
	decoder.Start(runtime.GOMAXPROCS(-1))
	return decoder
}

func (s *Source) collectNodes(decoder *osmpbf.Decoder) error {
	var nodeCount int
	for {
		obj, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error decoding PBF data: %w", err)
		}

		if node, ok := obj.(*osmpbf.Node); ok {
			s.nodes[node.ID] = orb.Point{node.Lon, node.Lat}
			nodeCount++
			if nodeCount%1000000 == 0 {
				log.Printf("Collected %d nodes...", nodeCount)
			}
		}
	}
	log.Printf("Collected %d nodes", nodeCount)
	return nil
}

func (s *Source) indexWays(decoder *osmpbf.Decoder) error {
	var wayCount int
	for {
		obj, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error decoding PBF data: %w", err)
		}

		way, ok := obj.(*osmpbf.Way)
		if !ok {
			continue
		}
		highway, ok := way.Tags["highway"]
		if !ok || excludedHighways.MatchString(highway) || way.Tags["area"] == "yes" {
			continue
		}

		iw := s.buildIndexedWay(way)
		if iw == nil {
			continue
		}
		s.tree.Insert(iw)
		wayCount++
	}
	log.Printf("Indexed %d highway ways", wayCount)
	return nil
}

// buildIndexedWay computes the way's bounding rectangle from the nodes we
// know about. Ways with fewer than two known nodes carry no usable
// geometry and are skipped.
func (s *Source) buildIndexedWay(way *osmpbf.Way) *indexedWay {
	minLon, minLat := 180.0, 90.0
	maxLon, maxLat := -180.0, -90.0
	known := 0
	for _, id := range way.NodeIDs {
		p, ok := s.nodes[id]
		if !ok {
			continue
		}
		known++
		minLon, maxLon = min(minLon, p[0]), max(maxLon, p[0])
		minLat, maxLat = min(minLat, p[1]), max(maxLat, p[1])
	}
	if known < 2 {
		return nil
	}

	// rtreego rejects zero-extent rectangles
	const eps = 1e-12
	rect, err := rtreego.NewRect(
		rtreego.Point{minLon, minLat},
		[]float64{maxLon - minLon + eps, maxLat - minLat + eps},
	)
	if err != nil {
		return nil
	}

	return &indexedWay{
		id:      way.ID,
		tags:    way.Tags,
		nodeIDs: way.NodeIDs,
		rect:    rect,
	}
}

// Extract slices the extract for one tile bound out of the index,
// producing the same OSM XML shape an Overpass download would.
func (s *Source) Extract(ctx context.Context, bound model.BoundingBox) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	searchRect, err := rtreego.NewRect(
		rtreego.Point{bound.MinLon, bound.MinLat},
		[]float64{bound.LonSpan(), bound.LatSpan()},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid tile bound: %w", err)
	}

	matches := s.tree.SearchIntersect(searchRect)

	ways := make([]*indexedWay, 0, len(matches))
	for _, m := range matches {
		ways = append(ways, m.(*indexedWay))
	}
	sort.Slice(ways, func(i, j int) bool { return ways[i].id < ways[j].id })

	doc := &osm.OSM{}
	seenNodes := make(map[int64]bool)
	for _, w := range ways {
		wayNodes := make(osm.WayNodes, 0, len(w.nodeIDs))
		for _, id := range w.nodeIDs {
			if _, ok := s.nodes[id]; !ok {
				continue
			}
			wayNodes = append(wayNodes, osm.WayNode{ID: osm.NodeID(id)})
			seenNodes[id] = true
		}
		doc.Ways = append(doc.Ways, &osm.Way{
			ID:    osm.WayID(w.id),
			Nodes: wayNodes,
			Tags:  tagsFromMap(w.tags),
		})
	}

	nodeIDs := make([]int64, 0, len(seenNodes))
	for id := range seenNodes {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })
	for _, id := range nodeIDs {
		p := s.nodes[id]
		doc.Nodes = append(doc.Nodes, &osm.Node{
			ID:  osm.NodeID(id),
			Lon: p[0],
			Lat: p[1],
		})
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extract: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func tagsFromMap(m map[string]string) osm.Tags {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make(osm.Tags, 0, len(m))
	for _, k := range keys {
		tags = append(tags, osm.Tag{Key: k, Value: m[k]})
	}
	return tags
}
