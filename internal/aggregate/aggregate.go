// Package aggregate merges per-tile geometry into the combined output
// artifacts. Merging is a plain concatenation in tile order: features are
// never fused across tile boundaries, so shared-edge artifacts between
// adjacent tiles survive into the output.
package aggregate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"kerbside/internal/model"
	"kerbside/internal/pipeline"
	"kerbside/internal/streets"
)

// Output file names, one per combined layer.
const (
	NetworkFile       = "combined_network.geojson"
	LanesFile         = "combined_lanes.geojson"
	IntersectionsFile = "combined_intersections.geojson"
)

// Merge concatenates each layer's features across all successful tiles,
// preserving tile order. With zero successful tiles the result holds three
// empty collections.
func Merge(results []pipeline.TileResult) *streets.Layers {
	combined := streets.EmptyLayers()
	for _, res := range results {
		appendFeatures(combined.Network, res.Layers.Network)
		appendFeatures(combined.Lanes, res.Layers.Lanes)
		appendFeatures(combined.Intersections, res.Layers.Intersections)
	}
	return combined
}

func appendFeatures(dst, src *geojson.FeatureCollection) {
	if src == nil {
		return
	}
	for _, f := range src.Features {
		dst.Append(f)
	}
}

// WriteOutputs writes the selected combined layers to dir, one GeoJSON
// file each. Files are written atomically so a cancelled run never leaves
// a partial combined output.
func WriteOutputs(dir string, combined *streets.Layers, layers model.LayerSet) error {
	outputs := []struct {
		enabled bool
		name    string
		fc      *geojson.FeatureCollection
	}{
		{layers.Network, NetworkFile, combined.Network},
		{layers.Lanes, LanesFile, combined.Lanes},
		{layers.Intersections, IntersectionsFile, combined.Intersections},
	}

	for _, out := range outputs {
		if !out.enabled {
			continue
		}
		data, err := json.Marshal(out.fc)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", out.name, err)
		}
		path := filepath.Join(dir, out.name)
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out.name, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to replace %s: %w", out.name, err)
		}
	}
	return nil
}
