package tilestore

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"kerbside/internal/model"
	"kerbside/internal/streets"
)

func testTile() model.Tile {
	return model.Tile{
		AreaID: 271110,
		Row:    2,
		Col:    3,
		Bound:  model.BoundingBox{MinLat: 52.37, MaxLat: 52.38, MinLon: 4.89, MaxLon: 4.90},
		Size:   0.01,
	}
}

func TestRawRoundTrip(t *testing.T) {
	store, err := New(t.TempDir(), 271110)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	tile := testTile()

	if store.HasRaw(tile) {
		t.Error("HasRaw true before write")
	}
	if err := store.WriteRaw(tile, []byte("<osm></osm>")); err != nil {
		t.Fatalf("writing raw: %v", err)
	}
	if !store.HasRaw(tile) {
		t.Error("HasRaw false after write")
	}

	data, err := store.ReadRaw(tile)
	if err != nil {
		t.Fatalf("reading raw: %v", err)
	}
	if string(data) != "<osm></osm>" {
		t.Errorf("raw data = %q", data)
	}
}

func TestProcessedRoundTrip(t *testing.T) {
	store, err := New(t.TempDir(), 271110)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	tile := testTile()

	layers := streets.EmptyLayers()
	f := geojson.NewFeature(orb.LineString{{4.89, 52.37}, {4.90, 52.38}})
	f.Properties["osm_way_ids"] = "10"
	layers.Network.Append(f)

	if store.HasProcessed(tile) {
		t.Error("HasProcessed true before write")
	}
	if err := store.WriteProcessed(tile, layers); err != nil {
		t.Fatalf("writing processed: %v", err)
	}
	if !store.HasProcessed(tile) {
		t.Error("HasProcessed false after write")
	}

	loaded, err := store.ReadProcessed(tile)
	if err != nil {
		t.Fatalf("reading processed: %v", err)
	}
	if len(loaded.Network.Features) != 1 {
		t.Fatalf("loaded %d network features, want 1", len(loaded.Network.Features))
	}
	if len(loaded.Lanes.Features) != 0 || len(loaded.Intersections.Features) != 0 {
		t.Error("empty layers did not round-trip empty")
	}
	if loaded.Network.Features[0].Geometry.GeoJSONType() != "LineString" {
		t.Errorf("geometry type = %s", loaded.Network.Features[0].Geometry.GeoJSONType())
	}
}

func TestTilesAreKeyedByIndex(t *testing.T) {
	store, err := New(t.TempDir(), 271110)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	a := testTile()
	b := testTile()
	b.Col = 4

	if err := store.WriteRaw(a, []byte("a")); err != nil {
		t.Fatalf("writing tile a: %v", err)
	}
	if store.HasRaw(b) {
		t.Error("tiles with different indices share an artifact")
	}
}
