package types

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// DType identifies the element type of a tensor payload.
type DType string

const (
	DTypeF32 DType = "f32"
	DTypeF16 DType = "f16"
	DTypeU8  DType = "u8"
	DTypeI8  DType = "i8"
	DTypeI32 DType = "i32"
)

// Size returns the element width in bytes.
func (d DType) Size() int {
	switch d {
	case DTypeF32, DTypeI32:
		return 4
	case DTypeF16:
		return 2
	case DTypeU8, DTypeI8:
		return 1
	}
	return 0
}

func (d DType) String() string {
	return string(d)
}

// ParseDType maps a wire/config dtype string to a DType.
func ParseDType(s string) (DType, error) {
	switch DType(s) {
	case DTypeF32, DTypeF16, DTypeU8, DTypeI8, DTypeI32:
		return DType(s), nil
	}
	return "", fmt.Errorf("unsupported dtype %q", s)
}

// Float64At reads element i of data as float64. The caller guarantees
// i is in range for the dtype's element width.
func (d DType) Float64At(data []byte, i int) float64 {
	switch d {
	case DTypeF32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	case DTypeF16:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(data[i*2:])).Float32())
	case DTypeU8:
		return float64(data[i])
	case DTypeI8:
		return float64(int8(data[i]))
	case DTypeI32:
		return float64(int32(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return 0
}

// PutFloat64 writes v as element i of data, rounding to the dtype's precision.
func (d DType) PutFloat64(data []byte, i int, v float64) {
	switch d {
	case DTypeF32:
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
	case DTypeF16:
		binary.LittleEndian.PutUint16(data[i*2:], float16.Fromfloat32(float32(v)).Bits())
	case DTypeU8:
		data[i] = uint8(clamp(v, 0, math.MaxUint8))
	case DTypeI8:
		data[i] = uint8(int8(clamp(v, math.MinInt8, math.MaxInt8)))
	case DTypeI32:
		binary.LittleEndian.PutUint32(data[i*4:], uint32(int32(clamp(v, math.MinInt32, math.MaxInt32))))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
