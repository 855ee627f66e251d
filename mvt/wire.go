package mvt

import (
	"encoding/binary"
	"fmt"
)

// Protobuf wire types.
const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

// wireReader walks a protobuf-encoded buffer without a schema
// compiler. The vector-tile schema is three fixed message types, so
// hand decoding stays small and allocation-free on the hot path.
type wireReader struct {
	buf []byte
	pos int
}

func (r *wireReader) done() bool { return r.pos >= len(r.buf) }

func (r *wireReader) tag() (field int, wiretype int, err error) {
	n, err := r.varint()
	if err != nil {
		return 0, 0, err
	}

	return int(n >> 3), int(n & 0x7), nil
}

func (r *wireReader) varint() (uint64, error) {
	var (
		v     uint64
		shift uint
	)

	for {
		if r.pos >= len(r.buf) {
			return 0, fmt.Errorf("truncated varint at offset %d", r.pos)
		}

		b := r.buf[r.pos]
		r.pos++

		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, nil
		}

		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("varint overflow at offset %d", r.pos)
		}
	}
}

func (r *wireReader) bytes() ([]byte, error) {
	n, err := r.varint()
	if err != nil {
		return nil, err
	}

	end := r.pos + int(n)
	if n > uint64(len(r.buf)) || end > len(r.buf) {
		return nil, fmt.Errorf("truncated field: need %d bytes at offset %d", n, r.pos)
	}

	b := r.buf[r.pos:end]
	r.pos = end

	return b, nil
}

func (r *wireReader) fixed32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("truncated fixed32 at offset %d", r.pos)
	}

	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4

	return v, nil
}

func (r *wireReader) fixed64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, fmt.Errorf("truncated fixed64 at offset %d", r.pos)
	}

	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8

	return v, nil
}

func (r *wireReader) skip(wiretype int) error {
	switch wiretype {
	case wireVarint:
		_, err := r.varint()

		return err
	case wireFixed64:
		_, err := r.fixed64()

		return err
	case wireBytes:
		_, err := r.bytes()

		return err
	case wireFixed32:
		_, err := r.fixed32()

		return err
	default:
		return fmt.Errorf("unsupported wire type %d", wiretype)
	}
}

func unzigzag(n uint64) int64 {
	return int64(n>>1) ^ -int64(n&1)
}
