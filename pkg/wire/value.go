package wire

import (
	"encoding/binary"
	"math"
)

// ValueSize is the encoded size of a sensor value.
const ValueSize = 4

// EncodeFloat32 encodes v as a little-endian IEEE-754 float32.
func EncodeFloat32(v float64) []byte {
	b := make([]byte, ValueSize)
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	return b
}

// DecodeFloat32 decodes a little-endian float32. Short input is
// zero-padded; bytes beyond the first four are ignored.
func DecodeFloat32(data []byte) float64 {
	var b [ValueSize]byte
	copy(b[:], data)
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[:])))
}
