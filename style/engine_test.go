package style

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mapFetcher serves fetches from a fixed URL map and counts calls.
type mapFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	calls     []string
}

func (f *mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	body, ok := f.responses[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}

	return body, nil
}

func newTestFetcher() *mapFetcher {
	return &mapFetcher{responses: map[string][]byte{
		"https://sprites.test/sprite.json": []byte(
			`{"restaurant-11": {"width": 17, "height": 17, "x": 0, "y": 0}}`,
		),
		"https://sprites.test/sprite.png":           []byte("png-bytes"),
		"https://glyphs.test/Test Sans/0-255.pbf":   []byte("glyphs-0"),
		"https://glyphs.test/Test Sans/256-511.pbf": []byte("glyphs-256"),
	}}
}

func loadReady(t *testing.T, fetcher Fetcher, opts LoadOptions) *Engine {
	t.Helper()

	e, err := Load(context.Background(), []byte(testStyleJSON), fetcher, opts, testLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	select {
	case <-e.Ready():
	case err := <-e.Err():
		t.Fatalf("engine failed to load: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine never became ready")
	}

	return e
}

func TestLoadReady(t *testing.T) {
	fetcher := newTestFetcher()
	e := loadReady(t, fetcher, LoadOptions{})

	if e.Index().Len() == 0 {
		t.Error("engine has empty layer index")
	}

	var gotJSON, gotPNG bool

	fetcher.mu.Lock()
	for _, url := range fetcher.calls {
		if strings.HasSuffix(url, "sprite.json") {
			gotJSON = true
		}
		if strings.HasSuffix(url, "sprite.png") {
			gotPNG = true
		}
	}
	fetcher.mu.Unlock()

	if !gotJSON || !gotPNG {
		t.Errorf("sprite fetches = %v, want both json and png", fetcher.calls)
	}
}

func TestLoadSpriteFailure(t *testing.T) {
	fetcher := &mapFetcher{responses: map[string][]byte{}}

	e, err := Load(context.Background(), []byte(testStyleJSON), fetcher, LoadOptions{}, testLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	select {
	case <-e.Ready():
		t.Fatal("engine became ready despite sprite failure")
	case err := <-e.Err():
		if err == nil {
			t.Fatal("nil error on Err channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("engine delivered neither ready nor error")
	}
}

func TestGetGlyphs(t *testing.T) {
	fetcher := newTestFetcher()
	e := loadReady(t, fetcher, LoadOptions{})

	var (
		gotErr error
		gotSet GlyphSet
	)

	e.GetGlyphs(context.Background(), GlyphParams{
		Stack:  "Test Sans",
		Ranges: []string{"0-255", "256-511"},
	}, func(err error, result any) {
		gotErr = err
		if err == nil {
			gotSet = result.(GlyphSet)
		}
	})

	if gotErr != nil {
		t.Fatalf("GetGlyphs failed: %v", gotErr)
	}

	if gotSet.Stack != "Test Sans" {
		t.Errorf("stack = %q, want Test Sans", gotSet.Stack)
	}
	if string(gotSet.Ranges["0-255"]) != "glyphs-0" {
		t.Errorf("range 0-255 = %q, want glyphs-0", gotSet.Ranges["0-255"])
	}
	if string(gotSet.Ranges["256-511"]) != "glyphs-256" {
		t.Errorf("range 256-511 = %q, want glyphs-256", gotSet.Ranges["256-511"])
	}
}

func TestGetGlyphsFetchFailure(t *testing.T) {
	fetcher := newTestFetcher()
	e := loadReady(t, fetcher, LoadOptions{})

	var gotErr error

	e.GetGlyphs(context.Background(), GlyphParams{
		Stack:  "Unknown Font",
		Ranges: []string{"0-255"},
	}, func(err error, _ any) { gotErr = err })

	if gotErr == nil {
		t.Error("expected error for unknown font stack")
	}
}

func TestGetImages(t *testing.T) {
	fetcher := newTestFetcher()
	e := loadReady(t, fetcher, LoadOptions{})

	var gotSet IconSet

	e.GetImages(context.Background(), IconParams{
		Icons: []string{"restaurant-11", "missing-icon"},
	}, func(err error, result any) {
		if err != nil {
			t.Fatalf("GetImages failed: %v", err)
		}

		gotSet = result.(IconSet)
	})

	if len(gotSet.Icons) != 1 {
		t.Fatalf("icons = %d, want 1 (missing icon skipped)", len(gotSet.Icons))
	}

	entry := gotSet.Icons["restaurant-11"]
	if entry.Width != 17 || entry.Height != 17 {
		t.Errorf("sprite entry = %+v, want 17x17", entry)
	}
}

func TestTransformRequest(t *testing.T) {
	fetcher := newTestFetcher()
	fetcher.responses["https://sprites.test/sprite.json?sku=test"] =
		fetcher.responses["https://sprites.test/sprite.json"]
	fetcher.responses["https://sprites.test/sprite.png?sku=test"] =
		fetcher.responses["https://sprites.test/sprite.png"]

	loadReady(t, fetcher, LoadOptions{
		TransformRequest: func(url string) string { return url + "?sku=test" },
	})

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()

	for _, url := range fetcher.calls {
		if !strings.HasSuffix(url, "?sku=test") {
			t.Errorf("fetch %s bypassed the request transform", url)
		}
	}
}
