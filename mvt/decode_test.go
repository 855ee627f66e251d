package mvt

import (
	"testing"

	"github.com/mapward/tilebench/internal/tiletest"
)

func fixtureTile() []byte {
	return tiletest.Encode([]tiletest.Layer{
		{
			Name: "road",
			Features: []tiletest.Feature{
				{
					ID:   7,
					Type: tiletest.GeomLineString,
					Tags: map[string]string{
						"class": "street",
						"name":  "Main St",
					},
					Geometry: tiletest.Commands(
						tiletest.MoveTo([2]int32{2, 2}),
						tiletest.LineTo([2]int32{2, 0}, [2]int32{0, 2}),
					),
				},
			},
		},
		{
			Name: "water",
			Features: []tiletest.Feature{
				{
					Type: tiletest.GeomPolygon,
					Geometry: tiletest.Commands(
						tiletest.MoveTo([2]int32{0, 0}),
						tiletest.LineTo([2]int32{10, 0}, [2]int32{0, 10}),
						tiletest.ClosePath(),
					),
				},
			},
		},
		{
			Name: "poi",
			Features: []tiletest.Feature{
				{
					Type: tiletest.GeomPoint,
					Tags: map[string]string{
						"name": "Cafe",
						"icon": "restaurant",
					},
					Geometry: tiletest.MoveTo([2]int32{5, 5}),
				},
			},
		},
	})
}

func TestDecodeTile(t *testing.T) {
	tile, err := Decode(fixtureTile())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(tile.Layers) != 3 {
		t.Fatalf("layers = %d, want 3", len(tile.Layers))
	}

	road := tile.Layer("road")
	if road == nil {
		t.Fatal("road layer missing")
	}
	if road.Version != 2 {
		t.Errorf("road version = %d, want 2", road.Version)
	}
	if road.Extent != 4096 {
		t.Errorf("road extent = %d, want 4096", road.Extent)
	}
	if len(road.Features) != 1 {
		t.Fatalf("road features = %d, want 1", len(road.Features))
	}

	f := road.Features[0]
	if f.ID != 7 {
		t.Errorf("feature id = %d, want 7", f.ID)
	}
	if f.Type != GeomLineString {
		t.Errorf("feature type = %v, want linestring", f.Type)
	}
	if got := f.Tags["class"]; got != "street" {
		t.Errorf("class tag = %v, want street", got)
	}
	if got := f.Tags["name"]; got != "Main St" {
		t.Errorf("name tag = %v, want Main St", got)
	}

	if len(f.Geometry) != 1 {
		t.Fatalf("geometry lines = %d, want 1", len(f.Geometry))
	}

	wantLine := []Point{{2, 2}, {4, 2}, {4, 4}}
	for i, p := range f.Geometry[0] {
		if p != wantLine[i] {
			t.Errorf("vertex %d = %v, want %v", i, p, wantLine[i])
		}
	}
}

func TestDecodePolygonRingClosed(t *testing.T) {
	tile, err := Decode(fixtureTile())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	water := tile.Layer("water")
	if water == nil {
		t.Fatal("water layer missing")
	}

	ring := water.Features[0].Geometry[0]
	if len(ring) != 4 {
		t.Fatalf("ring vertices = %d, want 4 (closed triangle)", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Errorf("ring not closed: %v != %v", ring[0], ring[len(ring)-1])
	}
}

func TestDecodeMultiLine(t *testing.T) {
	raw := tiletest.Encode([]tiletest.Layer{{
		Name: "road",
		Features: []tiletest.Feature{{
			Type: tiletest.GeomLineString,
			Geometry: tiletest.Commands(
				tiletest.MoveTo([2]int32{0, 0}),
				tiletest.LineTo([2]int32{1, 1}),
				tiletest.MoveTo([2]int32{5, 5}),
				tiletest.LineTo([2]int32{1, 0}),
			),
		}},
	}})

	tile, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	geom := tile.Layers[0].Features[0].Geometry
	if len(geom) != 2 {
		t.Fatalf("lines = %d, want 2", len(geom))
	}

	// Deltas are cumulative across commands.
	if got := geom[1][0]; got != (Point{X: 6, Y: 6}) {
		t.Errorf("second line start = %v, want {6 6}", got)
	}
}

func TestDecodeTruncated(t *testing.T) {
	raw := fixtureTile()

	for _, cut := range []int{1, len(raw) / 2, len(raw) - 1} {
		if _, err := Decode(raw[:cut]); err == nil {
			t.Errorf("Decode of %d-byte prefix succeeded, want error", cut)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	tile, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode of empty buffer failed: %v", err)
	}

	if len(tile.Layers) != 0 {
		t.Errorf("layers = %d, want 0", len(tile.Layers))
	}
}
