// Package mvt decodes binary vector tiles and parses them into
// renderable buffers. The wire format is the vector-tile protobuf
// schema: a Tile of Layers, each carrying tagged features with a
// packed geometry command stream.
package mvt

import (
	"fmt"
	"math"
)

// GeomType is a feature's geometry class.
type GeomType uint8

// Geometry classes, matching the wire enum.
const (
	GeomUnknown GeomType = iota
	GeomPoint
	GeomLineString
	GeomPolygon
)

func (t GeomType) String() string {
	switch t {
	case GeomPoint:
		return "point"
	case GeomLineString:
		return "linestring"
	case GeomPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Point is one vertex in tile-local integer coordinates.
type Point struct {
	X int32
	Y int32
}

// Feature is one decoded tile feature. Geometry holds its decoded
// command stream: one slice per line or ring, a single slice of
// standalone vertices for points.
type Feature struct {
	ID       uint64
	Type     GeomType
	Tags     map[string]any
	Geometry [][]Point
}

// Layer is one decoded tile layer.
type Layer struct {
	Name     string
	Version  int
	Extent   int
	Features []Feature
}

// Tile is a fully decoded vector tile.
type Tile struct {
	Layers []Layer
}

// Layer returns the named layer, or nil.
func (t *Tile) Layer(name string) *Layer {
	for i := range t.Layers {
		if t.Layers[i].Name == name {
			return &t.Layers[i]
		}
	}

	return nil
}

// Protobuf field numbers for the vector-tile schema.
const (
	tileFieldLayer = 3

	layerFieldName     = 1
	layerFieldFeature  = 2
	layerFieldKey      = 3
	layerFieldValue    = 4
	layerFieldExtent   = 5
	layerFieldVersion  = 15
	defaultLayerExtent = 4096

	featureFieldID       = 1
	featureFieldTags     = 2
	featureFieldType     = 3
	featureFieldGeometry = 4

	valueFieldString = 1
	valueFieldFloat  = 2
	valueFieldDouble = 3
	valueFieldInt    = 4
	valueFieldUint   = 5
	valueFieldSint   = 6
	valueFieldBool   = 7
)

// Decode parses a raw vector-tile buffer.
func Decode(raw []byte) (*Tile, error) {
	r := wireReader{buf: raw}
	tile := &Tile{}

	for !r.done() {
		field, wt, err := r.tag()
		if err != nil {
			return nil, fmt.Errorf("decode tile: %w", err)
		}

		if field == tileFieldLayer && wt == wireBytes {
			body, err := r.bytes()
			if err != nil {
				return nil, fmt.Errorf("decode tile layer: %w", err)
			}

			layer, err := decodeLayer(body)
			if err != nil {
				return nil, err
			}

			tile.Layers = append(tile.Layers, *layer)

			continue
		}

		if err := r.skip(wt); err != nil {
			return nil, fmt.Errorf("decode tile: %w", err)
		}
	}

	return tile, nil
}

// rawFeature is a feature before tag and geometry resolution.
type rawFeature struct {
	id   uint64
	typ  GeomType
	tags []uint64
	geom []uint32
}

func decodeLayer(body []byte) (*Layer, error) {
	r := wireReader{buf: body}
	layer := &Layer{Extent: defaultLayerExtent}

	var (
		keys   []string
		values []any
		feats  []rawFeature
	)

	for !r.done() {
		field, wt, err := r.tag()
		if err != nil {
			return nil, fmt.Errorf("decode layer: %w", err)
		}

		switch {
		case field == layerFieldName && wt == wireBytes:
			b, err := r.bytes()
			if err != nil {
				return nil, fmt.Errorf("layer name: %w", err)
			}

			layer.Name = string(b)

		case field == layerFieldFeature && wt == wireBytes:
			b, err := r.bytes()
			if err != nil {
				return nil, fmt.Errorf("layer feature: %w", err)
			}

			f, err := decodeFeature(b)
			if err != nil {
				return nil, fmt.Errorf("layer %s: %w", layer.Name, err)
			}

			feats = append(feats, f)

		case field == layerFieldKey && wt == wireBytes:
			b, err := r.bytes()
			if err != nil {
				return nil, fmt.Errorf("layer key: %w", err)
			}

			keys = append(keys, string(b))

		case field == layerFieldValue && wt == wireBytes:
			b, err := r.bytes()
			if err != nil {
				return nil, fmt.Errorf("layer value: %w", err)
			}

			v, err := decodeValue(b)
			if err != nil {
				return nil, fmt.Errorf("layer %s: %w", layer.Name, err)
			}

			values = append(values, v)

		case field == layerFieldExtent && wt == wireVarint:
			n, err := r.varint()
			if err != nil {
				return nil, fmt.Errorf("layer extent: %w", err)
			}

			layer.Extent = int(n)

		case field == layerFieldVersion && wt == wireVarint:
			n, err := r.varint()
			if err != nil {
				return nil, fmt.Errorf("layer version: %w", err)
			}

			layer.Version = int(n)

		default:
			if err := r.skip(wt); err != nil {
				return nil, fmt.Errorf("decode layer: %w", err)
			}
		}
	}

	layer.Features = make([]Feature, 0, len(feats))

	for _, rf := range feats {
		tags, err := resolveTags(rf.tags, keys, values)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", layer.Name, err)
		}

		geom, err := decodeGeometry(rf.typ, rf.geom)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", layer.Name, err)
		}

		layer.Features = append(layer.Features, Feature{
			ID:       rf.id,
			Type:     rf.typ,
			Tags:     tags,
			Geometry: geom,
		})
	}

	return layer, nil
}

func decodeFeature(body []byte) (rawFeature, error) {
	r := wireReader{buf: body}

	var f rawFeature

	for !r.done() {
		field, wt, err := r.tag()
		if err != nil {
			return f, fmt.Errorf("decode feature: %w", err)
		}

		switch {
		case field == featureFieldID && wt == wireVarint:
			f.id, err = r.varint()

		case field == featureFieldTags && wt == wireBytes:
			var packed []byte
			packed, err = r.bytes()
			if err != nil {
				break
			}

			pr := wireReader{buf: packed}
			for !pr.done() {
				var n uint64
				n, err = pr.varint()
				if err != nil {
					break
				}

				f.tags = append(f.tags, n)
			}

		case field == featureFieldType && wt == wireVarint:
			var n uint64
			n, err = r.varint()
			f.typ = GeomType(n)

		case field == featureFieldGeometry && wt == wireBytes:
			var packed []byte
			packed, err = r.bytes()
			if err != nil {
				break
			}

			pr := wireReader{buf: packed}
			for !pr.done() {
				var n uint64
				n, err = pr.varint()
				if err != nil {
					break
				}

				f.geom = append(f.geom, uint32(n))
			}

		default:
			err = r.skip(wt)
		}

		if err != nil {
			return f, fmt.Errorf("decode feature: %w", err)
		}
	}

	return f, nil
}

func decodeValue(body []byte) (any, error) {
	r := wireReader{buf: body}

	for !r.done() {
		field, wt, err := r.tag()
		if err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}

		switch {
		case field == valueFieldString && wt == wireBytes:
			b, err := r.bytes()

			return string(b), err

		case field == valueFieldFloat && wt == wireFixed32:
			n, err := r.fixed32()

			return float64(math.Float32frombits(n)), err

		case field == valueFieldDouble && wt == wireFixed64:
			n, err := r.fixed64()

			return math.Float64frombits(n), err

		case field == valueFieldInt && wt == wireVarint:
			n, err := r.varint()

			return int64(n), err

		case field == valueFieldUint && wt == wireVarint:
			return r.varint()

		case field == valueFieldSint && wt == wireVarint:
			n, err := r.varint()

			return unzigzag(n), err

		case field == valueFieldBool && wt == wireVarint:
			n, err := r.varint()

			return n != 0, err

		default:
			if err := r.skip(wt); err != nil {
				return nil, fmt.Errorf("decode value: %w", err)
			}
		}
	}

	return nil, nil
}

func resolveTags(pairs []uint64, keys []string, values []any) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd tag list length %d", len(pairs))
	}

	tags := make(map[string]any, len(pairs)/2)

	for i := 0; i < len(pairs); i += 2 {
		ki, vi := pairs[i], pairs[i+1]
		if ki >= uint64(len(keys)) || vi >= uint64(len(values)) {
			return nil, fmt.Errorf("tag index out of range (%d, %d)", ki, vi)
		}

		tags[keys[ki]] = values[vi]
	}

	return tags, nil
}
