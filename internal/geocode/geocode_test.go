package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"kerbside/internal/model"
)

var amsterdamWest = model.Area{
	OSMID: 271110,
	Name:  "West, Amsterdam",
	Bound: model.BoundingBox{MinLat: 52.36, MaxLat: 52.40, MinLon: 4.82, MaxLon: 4.90},
}

// failingGeocoder fails the test if the resolver ever reaches it.
type failingGeocoder struct {
	t *testing.T
}

func (g *failingGeocoder) Geocode(ctx context.Context, name string) (model.Area, error) {
	g.t.Errorf("geocoder invoked for %q despite cache hit", name)
	return model.Area{}, errors.New("should not be called")
}

// stubGeocoder returns a fixed area and counts invocations.
type stubGeocoder struct {
	area  model.Area
	err   error
	calls int
}

func (g *stubGeocoder) Geocode(ctx context.Context, name string) (model.Area, error) {
	g.calls++
	if g.err != nil {
		return model.Area{}, g.err
	}
	return g.area, nil
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  West,   AMSTERDAM "); got != "west, amsterdam" {
		t.Errorf("NormalizeName = %q", got)
	}
}

func TestResolverCacheHitSkipsGeocoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "location_cache.json")
	cache, err := OpenCache(path)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	if err := cache.Store("West, Amsterdam", amsterdamWest); err != nil {
		t.Fatalf("storing entry: %v", err)
	}

	resolver := NewResolver(&failingGeocoder{t: t}, cache)
	area, err := resolver.Resolve(context.Background(), "west,  amsterdam")
	if err != nil {
		t.Fatalf("resolving cached name: %v", err)
	}
	if area.OSMID != amsterdamWest.OSMID || area.Bound != amsterdamWest.Bound {
		t.Errorf("cached area = %+v, want %+v", area, amsterdamWest)
	}
}

func TestResolverMissQueriesAndCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "location_cache.json")
	cache, err := OpenCache(path)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}

	stub := &stubGeocoder{area: amsterdamWest}
	resolver := NewResolver(stub, cache)

	if _, err := resolver.Resolve(context.Background(), "West, Amsterdam"); err != nil {
		t.Fatalf("resolving: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("geocoder calls = %d, want 1", stub.calls)
	}

	// A fresh cache loaded from the same file must now hold the entry.
	reopened, err := OpenCache(path)
	if err != nil {
		t.Fatalf("reopening cache: %v", err)
	}
	if _, ok := reopened.Lookup("West, Amsterdam"); !ok {
		t.Error("resolved area was not persisted to the cache file")
	}
}

func TestResolverNoMatchIsResolutionError(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	stub := &stubGeocoder{err: errors.New("network down")}
	resolver := NewResolver(stub, cache)

	_, err = resolver.Resolve(context.Background(), "Nowhere")
	if !errors.Is(err, model.ErrResolution) {
		t.Errorf("got %v, want ErrResolution", err)
	}
}

func TestCacheRewritePreservesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache, err := OpenCache(path)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}

	second := amsterdamWest
	second.OSMID = 47811
	if err := cache.Store("first", amsterdamWest); err != nil {
		t.Fatalf("storing first: %v", err)
	}
	if err := cache.Store("second", second); err != nil {
		t.Fatalf("storing second: %v", err)
	}

	reopened, err := OpenCache(path)
	if err != nil {
		t.Fatalf("reopening cache: %v", err)
	}
	for _, name := range []string{"first", "second"} {
		if _, ok := reopened.Lookup(name); !ok {
			t.Errorf("entry %q lost after rewrite", name)
		}
	}
}

func TestNominatimGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "West, Amsterdam" {
			t.Errorf("query = %q", got)
		}
		w.Write([]byte(`[{"osm_id": 271110, "display_name": "West, Amsterdam",
			"boundingbox": ["52.36", "52.40", "4.82", "4.90"]}]`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL, "kerbside-test")
	area, err := client.Geocode(context.Background(), "West, Amsterdam")
	if err != nil {
		t.Fatalf("geocoding: %v", err)
	}
	if area.OSMID != 271110 {
		t.Errorf("OSMID = %d, want 271110", area.OSMID)
	}
	want := model.BoundingBox{MinLat: 52.36, MaxLat: 52.40, MinLon: 4.82, MaxLon: 4.90}
	if area.Bound != want {
		t.Errorf("bound = %+v, want %+v", area.Bound, want)
	}
}

func TestNominatimNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL, "kerbside-test")
	_, err := client.Geocode(context.Background(), "Nowhere At All")
	if !errors.Is(err, model.ErrResolution) {
		t.Errorf("got %v, want ErrResolution", err)
	}
}
