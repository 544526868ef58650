// ABOUTME: Sample formats for turning numeric text into fixed-size elements
// ABOUTME: Little-endian integer and IEEE float encodings, Size() bytes per element
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/harper/frame-extractor/internal/domain"
)

type Format string

const (
	Int8    Format = "int8"
	Int16   Format = "int16"
	Int32   Format = "int32"
	Int64   Format = "int64"
	Uint8   Format = "uint8"
	Uint16  Format = "uint16"
	Float32 Format = "float32"
	Float64 Format = "float64"
)

var sizes = map[Format]int{
	Int8: 1, Int16: 2, Int32: 4, Int64: 8,
	Uint8: 1, Uint16: 2,
	Float32: 4, Float64: 8,
}

// Parse returns the format with the given name.
func Parse(name string) (Format, error) {
	f := Format(name)
	if _, ok := sizes[f]; !ok {
		return "", fmt.Errorf("%w: unknown sample format %q", domain.ErrConfiguration, name)
	}
	return f, nil
}

// Size is the element size in bytes, or 0 for an unknown format.
func (f Format) Size() int {
	return sizes[f]
}

// Encode parses one numeric token and returns its element bytes.
func (f Format) Encode(token string) ([]byte, error) {
	out := make([]byte, f.Size())
	if err := f.put(out, token); err != nil {
		return nil, err
	}
	return out, nil
}

func (f Format) put(dst []byte, token string) error {
	le := binary.LittleEndian
	switch f {
	case Int8, Int16, Int32, Int64:
		v, err := strconv.ParseInt(token, 10, 8*f.Size())
		if err != nil {
			return fmt.Errorf("parse %s sample: %w", f, err)
		}
		switch f {
		case Int8:
			dst[0] = byte(int8(v))
		case Int16:
			le.PutUint16(dst, uint16(int16(v)))
		case Int32:
			le.PutUint32(dst, uint32(int32(v)))
		default:
			le.PutUint64(dst, uint64(v))
		}
	case Uint8, Uint16:
		v, err := strconv.ParseUint(token, 10, 8*f.Size())
		if err != nil {
			return fmt.Errorf("parse %s sample: %w", f, err)
		}
		if f == Uint8 {
			dst[0] = byte(v)
		} else {
			le.PutUint16(dst, uint16(v))
		}
	case Float32:
		v, err := strconv.ParseFloat(token, 32)
		if err != nil {
			return fmt.Errorf("parse %s sample: %w", f, err)
		}
		le.PutUint32(dst, math.Float32bits(float32(v)))
	case Float64:
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return fmt.Errorf("parse %s sample: %w", f, err)
		}
		le.PutUint64(dst, math.Float64bits(v))
	default:
		return fmt.Errorf("%w: unknown sample format %q", domain.ErrConfiguration, string(f))
	}
	return nil
}

// Decode renders one element as text. elem must be Size() bytes.
func (f Format) Decode(elem []byte) string {
	le := binary.LittleEndian
	switch f {
	case Int8:
		return strconv.FormatInt(int64(int8(elem[0])), 10)
	case Int16:
		return strconv.FormatInt(int64(int16(le.Uint16(elem))), 10)
	case Int32:
		return strconv.FormatInt(int64(int32(le.Uint32(elem))), 10)
	case Int64:
		return strconv.FormatInt(int64(le.Uint64(elem)), 10)
	case Uint8:
		return strconv.FormatUint(uint64(elem[0]), 10)
	case Uint16:
		return strconv.FormatUint(uint64(le.Uint16(elem)), 10)
	case Float32:
		return strconv.FormatFloat(float64(math.Float32frombits(le.Uint32(elem))), 'g', -1, 32)
	case Float64:
		return strconv.FormatFloat(math.Float64frombits(le.Uint64(elem)), 'g', -1, 64)
	default:
		return fmt.Sprintf("%x", elem)
	}
}

// DecodeAll renders every element of data.
func (f Format) DecodeAll(data []byte) []string {
	size := f.Size()
	if size == 0 {
		return nil
	}
	out := make([]string, 0, len(data)/size)
	for off := 0; off+size <= len(data); off += size {
		out = append(out, f.Decode(data[off:off+size]))
	}
	return out
}
