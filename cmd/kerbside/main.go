package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"kerbside/internal/aggregate"
	"kerbside/internal/config"
	"kerbside/internal/geocode"
	"kerbside/internal/grid"
	"kerbside/internal/model"
	"kerbside/internal/overpass"
	"kerbside/internal/pbf"
	"kerbside/internal/pipeline"
	"kerbside/internal/streets"
	"kerbside/internal/tilestore"
)

// Command line flags
var (
	tileSize    float64
	drivingSide string
	layersFlag  string
	workers     int
	pbfPath     string
	exportGrid  bool
)

func init() {
	flag.Float64Var(&tileSize, "tile-size", 0.01, "Tile size in degrees")
	flag.StringVar(&drivingSide, "driving-side", "Right", "Driving side: Right or Left")
	flag.StringVar(&layersFlag, "layers", "", "Comma-separated output layers: network,lanes,intersections (default: all)")
	flag.IntVar(&workers, "workers", 4, "Number of concurrent tile workers")
	flag.StringVar(&pbfPath, "pbf", "", "Path to a local OSM PBF file to use instead of Overpass")
	flag.BoolVar(&exportGrid, "export-grid", false, "Export the planned tile grid to GeoJSON")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <location>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Validate arguments before any network or disk work
	location := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if location == "" {
		log.Fatal("A location name must be specified, e.g. \"West, Amsterdam\"")
	}
	if tileSize <= 0 {
		log.Fatalf("Tile size must be positive, got %g", tileSize)
	}
	side, err := model.ParseDrivingSide(drivingSide)
	if err != nil {
		log.Fatalf("Invalid driving side: %v", err)
	}
	layerSet, err := model.ParseLayerSet(layersFlag)
	if err != nil {
		log.Fatalf("Invalid layer selection: %v", err)
	}
	if workers < 1 {
		log.Fatalf("Worker count must be at least 1, got %d", workers)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Interrupt leaves per-tile artifacts and the cache consistent; only
	// in-flight tiles are abandoned.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resolve the location, consulting the persistent cache first
	cache, err := geocode.OpenCache(filepath.Join(cfg.DataDir, "location_cache.json"))
	if err != nil {
		log.Fatalf("Failed to open location cache: %v", err)
	}
	resolver := geocode.NewResolver(geocode.NewNominatimClient(cfg.NominatimURL, cfg.UserAgent), cache)

	area, err := resolver.Resolve(ctx, location)
	if err != nil {
		log.Fatalf("Failed to resolve location: %v", err)
	}
	log.Printf("Resolved %q to area %d, bbox (%g, %g, %g, %g)",
		location, area.OSMID, area.Bound.MinLat, area.Bound.MaxLat, area.Bound.MinLon, area.Bound.MaxLon)

	// Plan the tile grid
	tiles, err := grid.Plan(area, tileSize)
	if err != nil {
		log.Fatalf("Failed to plan tile grid: %v", err)
	}
	log.Printf("Planned %d tiles of %g degrees", len(tiles), tileSize)

	store, err := tilestore.New(cfg.DataDir, area.OSMID)
	if err != nil {
		log.Fatalf("Failed to create tile store: %v", err)
	}

	if exportGrid {
		gridFile := filepath.Join(store.OutputDir(), "tile_grid.geojson")
		if err := grid.ExportGeoJSON(tiles, gridFile); err != nil {
			log.Fatalf("Failed to export tile grid: %v", err)
		}
		log.Printf("Exported tile grid to %s", gridFile)
	}

	// Pick the raw-data source
	var source pipeline.Source
	if pbfPath != "" {
		source, err = pbf.Open(pbfPath)
		if err != nil {
			log.Fatalf("Failed to open PBF source: %v", err)
		}
	} else {
		source = overpass.NewClient(cfg.OverpassURL, cfg.UserAgent, cfg.OverpassRPS)
	}

	backend := streets.NewCLIBackend(cfg.BackendBin, store.ScratchDir(),
		time.Duration(cfg.BackendTimeout)*time.Second)

	failures := pipeline.NewFailureLog()
	p := &pipeline.Pipeline{
		Source:          source,
		Backend:         backend,
		Store:           store,
		Failures:        failures,
		Options:         model.DefaultRenderOptions(side),
		Workers:         workers,
		DownloadTimeout: time.Duration(cfg.DownloadTimeout) * time.Second,
	}

	results := p.Run(ctx, tiles)
	log.Printf("Processed %d/%d tiles successfully", len(results), len(tiles))

	// Merge and write the combined outputs, even when nothing succeeded
	combined := aggregate.Merge(results)
	if err := aggregate.WriteOutputs(store.OutputDir(), combined, layerSet); err != nil {
		log.Fatalf("Failed to write combined outputs: %v", err)
	}
	log.Printf("Wrote combined outputs to %s", store.OutputDir())

	reportPath := filepath.Join(store.OutputDir(), "failed_tiles.txt")
	if err := failures.WriteReport(reportPath); err != nil {
		log.Fatalf("Failed to write failure report: %v", err)
	}
	if n := failures.Len(); n > 0 {
		log.Printf("%d failures recorded in %s", n, reportPath)
	}
}
