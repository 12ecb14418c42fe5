// Package pipeline runs the per-tile download → repair → convert →
// validate cycle across a planned tile grid. Tiles are independent units
// of work; a failure in one is recorded and never aborts the run.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"kerbside/internal/model"
	"kerbside/internal/osmrepair"
	"kerbside/internal/streets"
	"kerbside/internal/tilestore"
)

// Source produces a raw street-network extract for a tile bound.
type Source interface {
	Extract(ctx context.Context, bound model.BoundingBox) ([]byte, error)
}

// TileResult pairs a tile with its validated geometry layers. Results are
// kept in tile-plan order regardless of worker scheduling.
type TileResult struct {
	Tile   model.Tile
	Layers *streets.Layers
}

// Pipeline holds the collaborators for one run.
type Pipeline struct {
	Source          Source
	Backend         streets.Backend
	Store           *tilestore.Store
	Failures        *FailureLog
	Options         model.RenderOptions
	Workers         int
	DownloadTimeout time.Duration
}

// Run processes all tiles with a bounded worker pool and returns the
// successful results in plan order. It returns only after every tile has
// reached a terminal state (success or recorded failure).
func (p *Pipeline) Run(ctx context.Context, tiles []model.Tile) []TileResult {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	slots := make([]*streets.Layers, len(tiles))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, tile := range tiles {
		wg.Add(1)
		go func(i int, tile model.Tile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if layers, ok := p.processTile(ctx, tile); ok {
				slots[i] = layers
			}
		}(i, tile)
	}
	wg.Wait()

	results := make([]TileResult, 0, len(tiles))
	for i, layers := range slots {
		if layers != nil {
			results = append(results, TileResult{Tile: tiles[i], Layers: layers})
		}
	}
	return results
}

// processTile runs one tile through every stage. Any per-tile error is
// recorded in the failure log; the boolean reports overall success.
func (p *Pipeline) processTile(ctx context.Context, tile model.Tile) (*streets.Layers, bool) {
	// A previously processed tile is reused as-is: processing is
	// idempotent by tile key.
	if p.Store.HasProcessed(tile) {
		layers, err := p.Store.ReadProcessed(tile)
		if err == nil {
			log.Printf("Tile %s already processed, reusing", tile.Key())
			return layers, true
		}
		log.Printf("Tile %s: stale processed artifact (%v), reprocessing", tile.Key(), err)
	}

	raw, ok := p.fetchRaw(ctx, tile)
	if !ok {
		return nil, false
	}

	repaired, report, err := osmrepair.Sanitize(raw)
	if err != nil {
		p.fail(tile, model.StageProcess, err.Error())
		return nil, false
	}
	if report.Changed() {
		log.Printf("Tile %s: repaired extract (%d ways removed, %d trimmed)",
			tile.Key(), len(report.RemovedWays), len(report.TrimmedWays))
	}

	var layers *streets.Layers
	if report.Empty {
		// Nothing to convert: an empty tile is a valid empty success.
		layers = streets.EmptyLayers()
	} else {
		layers, err = p.Backend.Convert(ctx, repaired, p.Options)
		if err != nil {
			p.fail(tile, model.StageProcess, err.Error())
			return nil, false
		}
	}

	layers, drops := streets.ValidateLayers(layers)
	for _, d := range drops {
		p.fail(tile, model.StageValidate, string(d.Layer)+": "+d.Reason)
	}

	if err := p.Store.WriteProcessed(tile, layers); err != nil {
		p.fail(tile, model.StageProcess, err.Error())
		return nil, false
	}
	return layers, true
}

// fetchRaw returns the tile's raw extract, downloading it only when it is
// not already on disk.
func (p *Pipeline) fetchRaw(ctx context.Context, tile model.Tile) ([]byte, bool) {
	if p.Store.HasRaw(tile) {
		raw, err := p.Store.ReadRaw(tile)
		if err != nil {
			p.fail(tile, model.StageDownload, err.Error())
			return nil, false
		}
		return raw, true
	}

	dctx := ctx
	if p.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, p.DownloadTimeout)
		defer cancel()
	}

	raw, err := p.Source.Extract(dctx, tile.Bound)
	if err != nil {
		p.fail(tile, model.StageDownload, err.Error())
		return nil, false
	}

	if err := p.Store.WriteRaw(tile, raw); err != nil {
		p.fail(tile, model.StageDownload, err.Error())
		return nil, false
	}
	return raw, true
}

func (p *Pipeline) fail(tile model.Tile, stage model.Stage, reason string) {
	log.Printf("Tile %s: %s failure: %s", tile.Key(), stage, reason)
	p.Failures.Append(model.FailureRecord{
		Row:    tile.Row,
		Col:    tile.Col,
		Stage:  stage,
		Reason: reason,
	})
}
