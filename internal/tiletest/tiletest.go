// Package tiletest encodes synthetic vector tiles for tests. It is
// the write-side mirror of the mvt decoder: enough of the protobuf
// wire format to build small deterministic fixtures in memory.
package tiletest

// Geometry types, matching the vector-tile wire enum.
const (
	GeomPoint      = 1
	GeomLineString = 2
	GeomPolygon    = 3
)

// Feature is one synthetic tile feature. Geometry is the raw packed
// command stream; build it with MoveTo, LineTo, ClosePath and
// Commands.
type Feature struct {
	ID       uint64
	Type     int
	Tags     map[string]string
	Geometry []uint32
}

// Layer is one synthetic tile layer.
type Layer struct {
	Name     string
	Extent   int
	Features []Feature
}

// Encode serializes layers as a vector-tile buffer.
func Encode(layers []Layer) []byte {
	var tile wireWriter

	for _, l := range layers {
		tile.bytesField(3, encodeLayer(l))
	}

	return tile.buf
}

func encodeLayer(l Layer) []byte {
	var w wireWriter

	w.varintField(15, 2) // version
	w.bytesField(1, []byte(l.Name))

	keys, values, lookup := tagTables(l.Features)

	for _, f := range l.Features {
		w.bytesField(2, encodeFeature(f, lookup))
	}

	for _, k := range keys {
		w.bytesField(3, []byte(k))
	}

	for _, v := range values {
		var val wireWriter
		val.bytesField(1, []byte(v))
		w.bytesField(4, val.buf)
	}

	extent := l.Extent
	if extent == 0 {
		extent = 4096
	}

	w.varintField(5, uint64(extent))

	return w.buf
}

type tagLookup struct {
	keyIdx map[string]uint64
	valIdx map[string]uint64
}

func tagTables(features []Feature) (keys, values []string, lookup tagLookup) {
	lookup = tagLookup{
		keyIdx: make(map[string]uint64),
		valIdx: make(map[string]uint64),
	}

	for _, f := range features {
		for _, k := range sortedTagKeys(f.Tags) {
			if _, ok := lookup.keyIdx[k]; !ok {
				lookup.keyIdx[k] = uint64(len(keys))
				keys = append(keys, k)
			}

			v := f.Tags[k]
			if _, ok := lookup.valIdx[v]; !ok {
				lookup.valIdx[v] = uint64(len(values))
				values = append(values, v)
			}
		}
	}

	return keys, values, lookup
}

func encodeFeature(f Feature, lookup tagLookup) []byte {
	var w wireWriter

	if f.ID != 0 {
		w.varintField(1, f.ID)
	}

	if len(f.Tags) > 0 {
		var packed wireWriter
		for _, k := range sortedTagKeys(f.Tags) {
			packed.varint(lookup.keyIdx[k])
			packed.varint(lookup.valIdx[f.Tags[k]])
		}

		w.bytesField(2, packed.buf)
	}

	w.varintField(3, uint64(f.Type))

	var geom wireWriter
	for _, c := range f.Geometry {
		geom.varint(uint64(c))
	}

	w.bytesField(4, geom.buf)

	return w.buf
}

// MoveTo encodes a MoveTo command over delta pairs.
func MoveTo(deltas ...[2]int32) []uint32 { return command(1, deltas) }

// LineTo encodes a LineTo command over delta pairs.
func LineTo(deltas ...[2]int32) []uint32 { return command(2, deltas) }

// ClosePath encodes a ClosePath command.
func ClosePath() []uint32 { return []uint32{7 | 1<<3} }

// Commands concatenates command fragments into one stream.
func Commands(parts ...[]uint32) []uint32 {
	var out []uint32
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}

func command(op uint32, deltas [][2]int32) []uint32 {
	out := []uint32{op | uint32(len(deltas))<<3}

	for _, d := range deltas {
		out = append(out, zigzag(d[0]), zigzag(d[1]))
	}

	return out
}

func zigzag(n int32) uint32 {
	return uint32((n << 1) ^ (n >> 31))
}

func sortedTagKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}

	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}

	return keys
}

type wireWriter struct {
	buf []byte
}

func (w *wireWriter) varint(v uint64) {
	for v >= 0x80 {
		w.buf = append(w.buf, byte(v)|0x80)
		v >>= 7
	}

	w.buf = append(w.buf, byte(v))
}

func (w *wireWriter) varintField(field int, v uint64) {
	w.varint(uint64(field << 3))
	w.varint(v)
}

func (w *wireWriter) bytesField(field int, b []byte) {
	w.varint(uint64(field<<3 | 2))
	w.varint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}
