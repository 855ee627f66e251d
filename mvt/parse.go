package mvt

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/mapward/tilebench/style"
)

// Actions recognized on the parse path's actor channel.
const (
	ActionGetGlyphs = "getGlyphs"
	ActionGetImages = "getImages"
)

// Callback delivers one actor round-trip result.
type Callback func(err error, result any)

// Sender is the asynchronous request/response channel Parse uses to
// acquire glyphs and icons. bench.Actor fits behind a one-line
// adapter.
type Sender interface {
	Send(action string, params any, cb Callback)
}

// LayerBuffer is the renderable accumulation for one styled layer.
type LayerBuffer struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	SourceLayer string `json:"source_layer"`
	Features    int    `json:"features"`
	Vertices    int    `json:"vertices"`
	Primitives  int    `json:"primitives"`
}

// Buffers is the output of one full parse pass over a tile.
type Buffers struct {
	Layers      []LayerBuffer `json:"layers"`
	Vertices    int           `json:"vertices"`
	Primitives  int           `json:"primitives"`
	GlyphRanges int           `json:"glyph_ranges"`
	Icons       int           `json:"icons"`
}

var tokenRe = regexp.MustCompile(`{([^{}]+)}`)

// Parse decodes raw into features and accumulates renderable buffers
// for every styled layer in the index. Symbol layers declare glyph
// and icon demand, which Parse requests through sender and waits for
// before returning; the result only settles once every round-trip
// has. A hung provider therefore blocks Parse indefinitely.
func Parse(raw []byte, index *style.LayerIndex, sender Sender) (*Buffers, error) {
	tile, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode tile: %w", err)
	}

	out := &Buffers{}

	glyphDemand := make(map[string]map[string]struct{})
	iconDemand := make(map[string]struct{})

	for _, layer := range tile.Layers {
		for _, styled := range index.Lookup(layer.Name) {
			lb := LayerBuffer{
				ID:          styled.ID,
				Type:        styled.Type,
				SourceLayer: styled.SourceLayer,
			}

			for _, f := range layer.Features {
				if !typeMatches(styled.Type, f.Type) {
					continue
				}

				lb.Features++

				for _, line := range f.Geometry {
					lb.Vertices += len(line)
					lb.Primitives += primitives(f.Type, len(line))
				}

				if styled.Type == "symbol" {
					collectSymbolDemand(styled, f, glyphDemand, iconDemand)
				}
			}

			out.Layers = append(out.Layers, lb)
			out.Vertices += lb.Vertices
			out.Primitives += lb.Primitives
		}
	}

	if err := fetchResources(sender, glyphDemand, iconDemand, out); err != nil {
		return nil, err
	}

	return out, nil
}

// fetchResources fires one actor request per font stack plus one for
// all icons, then blocks until every callback has fired.
func fetchResources(
	sender Sender,
	glyphDemand map[string]map[string]struct{},
	iconDemand map[string]struct{},
	out *Buffers,
) error {
	type reply struct {
		err    error
		result any
	}

	pending := 0
	replies := make(chan reply, len(glyphDemand)+1)

	deliver := func(err error, result any) {
		replies <- reply{err: err, result: result}
	}

	for _, stack := range sortedKeys(glyphDemand) {
		ranges := make([]string, 0, len(glyphDemand[stack]))
		for rng := range glyphDemand[stack] {
			ranges = append(ranges, rng)
		}

		sort.Strings(ranges)

		pending++
		sender.Send(ActionGetGlyphs, style.GlyphParams{
			Stack:  stack,
			Ranges: ranges,
		}, deliver)
	}

	if len(iconDemand) > 0 {
		icons := make([]string, 0, len(iconDemand))
		for name := range iconDemand {
			icons = append(icons, name)
		}

		sort.Strings(icons)

		pending++
		sender.Send(ActionGetImages, style.IconParams{Icons: icons}, deliver)
	}

	for i := 0; i < pending; i++ {
		rep := <-replies
		if rep.err != nil {
			return fmt.Errorf("fetch resources: %w", rep.err)
		}

		switch payload := rep.result.(type) {
		case style.GlyphSet:
			out.GlyphRanges += len(payload.Ranges)
		case style.IconSet:
			out.Icons += len(payload.Icons)
		}
	}

	return nil
}

func collectSymbolDemand(
	styled *style.StyledLayer,
	f Feature,
	glyphDemand map[string]map[string]struct{},
	iconDemand map[string]struct{},
) {
	if styled.FontStack != "" && styled.TextField != "" {
		text := resolveTokens(styled.TextField, f.Tags)
		if text != "" {
			ranges := glyphDemand[styled.FontStack]
			if ranges == nil {
				ranges = make(map[string]struct{})
				glyphDemand[styled.FontStack] = ranges
			}

			for _, r := range text {
				block := int(r) / 256
				ranges[fmt.Sprintf("%d-%d", block*256, block*256+255)] = struct{}{}
			}
		}
	}

	if styled.IconImage != "" {
		if icon := resolveTokens(styled.IconImage, f.Tags); icon != "" {
			iconDemand[icon] = struct{}{}
		}
	}
}

// resolveTokens substitutes {token} references with feature tag
// values. Tokens without a matching tag resolve to "".
func resolveTokens(s string, tags map[string]any) string {
	return tokenRe.ReplaceAllStringFunc(s, func(m string) string {
		key := m[1 : len(m)-1]

		v, ok := tags[key]
		if !ok {
			return ""
		}

		if str, ok := v.(string); ok {
			return str
		}

		return fmt.Sprint(v)
	})
}

// typeMatches reports whether a feature geometry can feed a styled
// layer of the given type.
func typeMatches(layerType string, g GeomType) bool {
	switch layerType {
	case "fill", "fill-extrusion":
		return g == GeomPolygon
	case "line":
		return g == GeomLineString || g == GeomPolygon
	default:
		return true
	}
}

// primitives counts renderable primitives for a line of n vertices:
// triangles for fans over polygon rings, segments for lines, one per
// standalone point.
func primitives(g GeomType, n int) int {
	switch g {
	case GeomPolygon:
		if n < 3 {
			return 0
		}

		return n - 2
	case GeomLineString:
		if n < 2 {
			return 0
		}

		return n - 1
	default:
		return n
	}
}

func sortedKeys(m map[string]map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
