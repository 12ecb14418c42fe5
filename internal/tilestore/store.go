// Package tilestore persists per-tile artifacts on disk, keyed by
// (area id, row, col). Raw extracts and processed layer collections are
// both stored, so re-runs skip work already done.
package tilestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"kerbside/internal/model"
	"kerbside/internal/streets"
)

// Store manages the on-disk layout for one area:
//
//	<root>/<areaID>/tiles/<row>_<col>.osm       raw extracts
//	<root>/<areaID>/processed/<row>_<col>.json  per-tile layer collections
//	<root>/<areaID>/processed/                  combined outputs + report
type Store struct {
	root   string
	areaID int64
}

// New creates the directory layout for an area under the data root.
func New(root string, areaID int64) (*Store, error) {
	s := &Store{root: root, areaID: areaID}
	for _, dir := range []string{s.tilesDir(), s.OutputDir(), s.ScratchDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *Store) areaDir() string  { return filepath.Join(s.root, fmt.Sprintf("%d", s.areaID)) }
func (s *Store) tilesDir() string { return filepath.Join(s.areaDir(), "tiles") }

// OutputDir is where combined outputs and the failure report are written.
func (s *Store) OutputDir() string { return filepath.Join(s.areaDir(), "processed") }

// ScratchDir holds transient backend working directories.
func (s *Store) ScratchDir() string { return filepath.Join(s.areaDir(), "tmp") }

// RawPath returns the raw-extract path for a tile.
func (s *Store) RawPath(t model.Tile) string {
	return filepath.Join(s.tilesDir(), t.Key()+".osm")
}

func (s *Store) processedPath(t model.Tile) string {
	return filepath.Join(s.OutputDir(), t.Key()+".json")
}

// HasRaw reports whether the tile's raw extract is already on disk.
func (s *Store) HasRaw(t model.Tile) bool {
	_, err := os.Stat(s.RawPath(t))
	return err == nil
}

// WriteRaw persists a tile's raw extract atomically.
func (s *Store) WriteRaw(t model.Tile, data []byte) error {
	return atomicWrite(s.RawPath(t), data)
}

// ReadRaw loads a tile's raw extract.
func (s *Store) ReadRaw(t model.Tile) ([]byte, error) {
	data, err := os.ReadFile(s.RawPath(t))
	if err != nil {
		return nil, fmt.Errorf("failed to read raw extract for tile %s: %w", t.Key(), err)
	}
	return data, nil
}

// HasProcessed reports whether the tile's layer collections exist on disk.
func (s *Store) HasProcessed(t model.Tile) bool {
	_, err := os.Stat(s.processedPath(t))
	return err == nil
}

// WriteProcessed persists a tile's validated layer collections atomically.
func (s *Store) WriteProcessed(t model.Tile, layers *streets.Layers) error {
	data, err := json.Marshal(layers)
	if err != nil {
		return fmt.Errorf("failed to encode layers for tile %s: %w", t.Key(), err)
	}
	return atomicWrite(s.processedPath(t), data)
}

// ReadProcessed loads a tile's previously persisted layer collections.
func (s *Store) ReadProcessed(t model.Tile) (*streets.Layers, error) {
	data, err := os.ReadFile(s.processedPath(t))
	if err != nil {
		return nil, fmt.Errorf("failed to read processed tile %s: %w", t.Key(), err)
	}
	var layers streets.Layers
	if err := json.Unmarshal(data, &layers); err != nil {
		return nil, fmt.Errorf("failed to parse processed tile %s: %w", t.Key(), err)
	}
	return &layers, nil
}

// atomicWrite writes via a temp file and rename so an interrupted run
// never leaves a partially written artifact behind.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
