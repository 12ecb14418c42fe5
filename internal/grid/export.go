package grid

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"kerbside/internal/model"
	"kerbside/internal/util"
)

// ExportGeoJSON writes the planned tile grid to a GeoJSON file for
// inspection, one polygon per tile with its dimensions in kilometers.
func ExportGeoJSON(tiles []model.Tile, outputFile string) error {
	fc := geojson.NewFeatureCollection()

	for _, tile := range tiles {
		b := tile.Bound
		ring := orb.Ring{
			{b.MinLon, b.MaxLat}, // Top Left (lon, lat)
			{b.MaxLon, b.MaxLat}, // Top Right
			{b.MaxLon, b.MinLat}, // Bottom Right
			{b.MinLon, b.MinLat}, // Bottom Left
			{b.MinLon, b.MaxLat}, // Close the ring
		}
		feature := geojson.NewFeature(orb.Polygon{ring})

		// Actual ground dimensions for this tile
		width := util.HaversineDistance(b.MinLat, b.MinLon, b.MinLat, b.MaxLon)
		height := util.HaversineDistance(b.MinLat, b.MinLon, b.MaxLat, b.MinLon)

		feature.Properties["row"] = tile.Row
		feature.Properties["col"] = tile.Col
		feature.Properties["width_kilometers"] = roundKm(width)
		feature.Properties["height_kilometers"] = roundKm(height)
		feature.Properties["area_kilometers"] = roundKm(width * height / 1000)

		fc.Append(feature)
	}

	jsonData, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal grid GeoJSON: %w", err)
	}
	if err := os.WriteFile(outputFile, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write grid GeoJSON file: %w", err)
	}
	return nil
}

func roundKm(meters float64) float64 {
	km := meters / 1000
	return float64(int(km*1000+0.5)) / 1000
}
