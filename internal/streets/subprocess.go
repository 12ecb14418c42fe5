package streets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"

	"kerbside/internal/model"
	"kerbside/internal/util"
)

// waitDelay is how long after the deadline the backend's pipes are forced
// closed when orphaned child processes are still holding them.
const waitDelay = 2 * time.Second

// CLIBackend runs the osm2streets command-line tool in a subprocess. Each
// invocation gets its own scratch directory and a hard deadline, so a
// backend crash or hang on one tile cannot take down the run.
type CLIBackend struct {
	Binary     string
	ScratchDir string
	Timeout    time.Duration
}

// NewCLIBackend creates a subprocess backend for the given binary.
func NewCLIBackend(binary, scratchDir string, timeout time.Duration) *CLIBackend {
	return &CLIBackend{Binary: binary, ScratchDir: scratchDir, Timeout: timeout}
}

// Convert feeds the extract and options to the backend binary and reads
// back the three GeoJSON layer files it writes.
func (b *CLIBackend) Convert(ctx context.Context, rawOSM []byte, opts model.RenderOptions) (*Layers, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	workDir := filepath.Join(b.ScratchDir, util.ShortUUID())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backend scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input.osm")
	if err := os.WriteFile(inputPath, rawOSM, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write backend input: %w", err)
	}

	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backend options: %w", err)
	}
	optsPath := filepath.Join(workDir, "options.json")
	if err := os.WriteFile(optsPath, optsJSON, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write backend options: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.Binary,
		"--input", inputPath,
		"--options", optsPath,
		"--out-dir", workDir,
	)
	// The backend is a Rust binary; keep its logging quiet.
	cmd.Env = append(os.Environ(), "RUST_LOG=off", "RUST_BACKTRACE=full")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// On deadline only the direct child is killed; a helper process it
	// spawned can keep the stderr pipe open and stall Wait forever.
	// WaitDelay closes the pipes shortly after cancellation instead.
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("backend timed out after %s", b.Timeout)
		}
		return nil, fmt.Errorf("backend failed: %v (%s)", err, lastLine(stderr.Bytes()))
	}

	layers := &Layers{}
	if layers.Network, err = readLayer(filepath.Join(workDir, "network.geojson")); err != nil {
		return nil, err
	}
	if layers.Lanes, err = readLayer(filepath.Join(workDir, "lanes.geojson")); err != nil {
		return nil, err
	}
	if layers.Intersections, err = readLayer(filepath.Join(workDir, "intersections.geojson")); err != nil {
		return nil, err
	}
	return layers, nil
}

// readLayer loads one output file; a missing file means the backend had
// nothing to emit for that layer, which is an empty collection.
func readLayer(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return geojson.NewFeatureCollection(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backend output %s: %w", filepath.Base(path), err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("backend output %s is not valid GeoJSON: %w", filepath.Base(path), err)
	}
	return fc, nil
}

func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return "no output"
	}
	return string(lines[len(lines)-1])
}
