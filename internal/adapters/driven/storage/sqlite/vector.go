package sqlite

import (
	"encoding/binary"
	"math"
)

// float32SliceToBytes encodes v as little-endian float32s. Empty input
// encodes to nil so the column stores NULL.
func float32SliceToBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice decodes a blob written by float32SliceToBytes.
// Trailing bytes that do not fill a float are ignored.
func bytesToFloat32Slice(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
