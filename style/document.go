// Package style parses map style documents and serves the glyph and
// icon resources styled layers need. It is the benchmark's stand-in
// for a full style engine: layer resolution, a source-layer index,
// and HTTP-backed glyph/sprite fetch behind callback interfaces.
package style

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document is a parsed style document.
type Document struct {
	Version int     `json:"version"`
	Name    string  `json:"name,omitempty"`
	Glyphs  string  `json:"glyphs"`
	Sprite  string  `json:"sprite"`
	Layers  []Layer `json:"layers"`
}

// Layer is one style layer. A layer carrying a non-empty Ref inherits
// its type, source and layout from the referenced layer.
type Layer struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Ref         string         `json:"ref,omitempty"`
	Source      string         `json:"source,omitempty"`
	SourceLayer string         `json:"source-layer,omitempty"`
	MinZoom     float64        `json:"minzoom,omitempty"`
	MaxZoom     float64        `json:"maxzoom,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
	Paint       map[string]any `json:"paint,omitempty"`
}

// ParseDocument decodes a raw style document.
func ParseDocument(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode style document: %w", err)
	}

	if len(doc.Layers) == 0 {
		return nil, fmt.Errorf("style document has no layers")
	}

	return &doc, nil
}

// FlattenLayers resolves ref layers against the layers they point at,
// returning a list where every layer carries its own type, source and
// layout. Order is preserved. A ref to an unknown or itself-ref'd
// layer is an error.
func FlattenLayers(layers []Layer) ([]Layer, error) {
	byID := make(map[string]*Layer, len(layers))
	for i := range layers {
		byID[layers[i].ID] = &layers[i]
	}

	flat := make([]Layer, 0, len(layers))

	for _, l := range layers {
		if l.Ref == "" {
			flat = append(flat, l)

			continue
		}

		parent, ok := byID[l.Ref]
		if !ok {
			return nil, fmt.Errorf("layer %s: unknown ref %q", l.ID, l.Ref)
		}

		if parent.Ref != "" {
			return nil, fmt.Errorf(
				"layer %s: ref %q is itself a ref", l.ID, l.Ref,
			)
		}

		resolved := l
		resolved.Ref = ""
		resolved.Type = parent.Type
		resolved.Source = parent.Source
		resolved.SourceLayer = parent.SourceLayer
		resolved.MinZoom = parent.MinZoom
		resolved.MaxZoom = parent.MaxZoom
		resolved.Layout = parent.Layout

		flat = append(flat, resolved)
	}

	return flat, nil
}

// FontStack returns the layer's font stack in canonical comma-joined
// form, or "" for layers without text.
func (l Layer) FontStack() string {
	fonts, ok := l.Layout["text-font"].([]any)
	if !ok || len(fonts) == 0 {
		return ""
	}

	names := make([]string, 0, len(fonts))

	for _, f := range fonts {
		if s, ok := f.(string); ok {
			names = append(names, s)
		}
	}

	return strings.Join(names, ",")
}

func (l Layer) layoutString(key string) string {
	s, _ := l.Layout[key].(string)

	return s
}

// TextField returns the layer's text-field layout value, if any.
func (l Layer) TextField() string { return l.layoutString("text-field") }

// IconImage returns the layer's icon-image layout value, if any.
func (l Layer) IconImage() string { return l.layoutString("icon-image") }
