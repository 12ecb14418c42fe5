package overpass

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kerbside/internal/model"
)

var testBound = model.BoundingBox{MinLat: 52.370, MaxLat: 52.3754321987654, MinLon: 4.890, MaxLon: 4.895}

func TestExtractSendsBoundedHighwayQuery(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		query = string(body)
		if got := r.Header.Get("User-Agent"); got != "kerbside-test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><osm></osm>`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "kerbside-test", 1000)
	data, err := client.Extract(context.Background(), testBound)
	if err != nil {
		t.Fatalf("extracting: %v", err)
	}
	if !strings.Contains(string(data), "<osm>") {
		t.Errorf("response = %q", data)
	}

	// The MaxLat value has more digits than %f's six decimals; the query
	// must carry every one of them so tile seams match the planned grid.
	for _, want := range []string{`way["highway"]`, "52.37", "4.89", "52.3754321987654", "4.895"} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}
}

func TestExtractServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too busy", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "kerbside-test", 1000)
	if _, err := client.Extract(context.Background(), testBound); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}

func TestExtractHonorsCancellation(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", "kerbside-test", 0.0001)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Extract(ctx, testBound); err == nil {
		t.Error("expected an error from a cancelled context")
	}
}
