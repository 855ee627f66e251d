package style

// StyledLayer is the slice of a style layer the tile decoder needs:
// which source layer it draws from and which auxiliary resources its
// symbols require.
type StyledLayer struct {
	ID          string
	Type        string
	SourceLayer string
	FontStack   string
	TextField   string
	IconImage   string
}

// LayerIndex maps tile source layers to the styled layers drawing
// from them. Built once per benchmark unit, read-only afterwards.
type LayerIndex struct {
	ordered  []*StyledLayer
	bySource map[string][]*StyledLayer
}

// BuildIndex builds a LayerIndex from flattened style layers. Layers
// without a source layer (background and such) are skipped: they draw
// nothing from a tile.
func BuildIndex(layers []Layer) *LayerIndex {
	ix := &LayerIndex{
		bySource: make(map[string][]*StyledLayer),
	}

	for _, l := range layers {
		if l.SourceLayer == "" {
			continue
		}

		sl := &StyledLayer{
			ID:          l.ID,
			Type:        l.Type,
			SourceLayer: l.SourceLayer,
			FontStack:   l.FontStack(),
			TextField:   l.TextField(),
			IconImage:   l.IconImage(),
		}

		ix.ordered = append(ix.ordered, sl)
		ix.bySource[l.SourceLayer] = append(ix.bySource[l.SourceLayer], sl)
	}

	return ix
}

// Lookup returns the styled layers drawing from sourceLayer, in
// document order.
func (ix *LayerIndex) Lookup(sourceLayer string) []*StyledLayer {
	return ix.bySource[sourceLayer]
}

// Layers returns every indexed layer in document order.
func (ix *LayerIndex) Layers() []*StyledLayer { return ix.ordered }

// Len returns the number of indexed layers.
func (ix *LayerIndex) Len() int { return len(ix.ordered) }
