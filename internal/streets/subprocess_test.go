package streets

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"kerbside/internal/model"
)

const testExtract = `<?xml version="1.0" encoding="UTF-8"?><osm></osm>`

// writeBackendScript installs a shell script standing in for the backend
// binary. The script receives --input, --options and --out-dir, so the
// out-dir is positional argument $6.
func writeBackendScript(t *testing.T, body string) *CLIBackend {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script backend stub needs a POSIX shell")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-backend")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("writing backend script: %v", err)
	}
	return NewCLIBackend(bin, dir, 30*time.Second)
}

func TestConvertKillsHungBackend(t *testing.T) {
	// The shell forks sleep as its own child (the trailing true keeps it
	// from exec'ing sleep in place), so the deadline kill hits the shell
	// while sleep keeps the stderr pipe open.
	backend := writeBackendScript(t, "sleep 30\ntrue")
	backend.Timeout = 300 * time.Millisecond

	start := time.Now()
	_, err := backend.Convert(context.Background(), []byte(testExtract), model.DefaultRenderOptions(model.DrivingSideRight))
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected a timeout error from a hung backend")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %v, want a timeout", err)
	}
	if elapsed > backend.Timeout+waitDelay+2*time.Second {
		t.Errorf("backend not reaped promptly, Convert took %s", elapsed)
	}
}

func TestConvertCrashIsContained(t *testing.T) {
	backend := writeBackendScript(t, "echo boom >&2\nexit 42")

	_, err := backend.Convert(context.Background(), []byte(testExtract), model.DefaultRenderOptions(model.DrivingSideRight))
	if err == nil {
		t.Fatal("expected an error from a crashing backend")
	}
	if !strings.Contains(err.Error(), "exit status 42") {
		t.Errorf("error = %v, want the exit status", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v, want the backend's last stderr line", err)
	}
}

func TestConvertMissingOutputsAreEmptyLayers(t *testing.T) {
	backend := writeBackendScript(t, "exit 0")

	layers, err := backend.Convert(context.Background(), []byte(testExtract), model.DefaultRenderOptions(model.DrivingSideRight))
	if err != nil {
		t.Fatalf("converting: %v", err)
	}
	for layer, fc := range map[Layer]int{
		LayerNetwork:       len(layers.Network.Features),
		LayerLanes:         len(layers.Lanes.Features),
		LayerIntersections: len(layers.Intersections.Features),
	} {
		if fc != 0 {
			t.Errorf("%s layer has %d features, want an empty collection", layer, fc)
		}
	}
}

func TestConvertReadsLayerOutputs(t *testing.T) {
	backend := writeBackendScript(t, `test -f "$2" || exit 1
test -f "$4" || exit 1
cat > "$6/network.geojson" <<'EOF'
{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"LineString","coordinates":[[4.89,52.37],[4.90,52.38]]},"properties":{}}]}
EOF`)

	layers, err := backend.Convert(context.Background(), []byte(testExtract), model.DefaultRenderOptions(model.DrivingSideRight))
	if err != nil {
		t.Fatalf("converting: %v", err)
	}
	if got := len(layers.Network.Features); got != 1 {
		t.Fatalf("network features = %d, want 1", got)
	}
	if got := len(layers.Lanes.Features); got != 0 {
		t.Errorf("lanes features = %d, want 0", got)
	}
}
