package csrfile

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const (
	Magic = "CSR\x00"

	// CurrentMajor changes only with incompatible layout changes.
	CurrentMajor uint16 = 1
	CurrentMinor uint16 = 0

	sectionAlign = 8
)

// ScalarType identifies the value encoding.
type ScalarType uint16

const (
	ScalarFloat32 ScalarType = iota + 1
	ScalarFloat64
	ScalarInt32
	ScalarInt64
	ScalarComplex64
	ScalarComplex128
)

var scalarNames = map[ScalarType]string{
	ScalarFloat32:    "float32",
	ScalarFloat64:    "float64",
	ScalarInt32:      "int32",
	ScalarInt64:      "int64",
	ScalarComplex64:  "complex64",
	ScalarComplex128: "complex128",
}

var scalarSizes = map[ScalarType]uint64{
	ScalarFloat32:    4,
	ScalarFloat64:    8,
	ScalarInt32:      4,
	ScalarInt64:      8,
	ScalarComplex64:  8,
	ScalarComplex128: 16,
}

func (s ScalarType) String() string {
	if n, ok := scalarNames[s]; ok {
		return n
	}
	return fmt.Sprintf("ScalarType(%d)", uint16(s))
}

// ParseScalarType maps a type name to its code.
func ParseScalarType(name string) (ScalarType, error) {
	for t, n := range scalarNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("csrfile: unknown scalar type %q", name)
}

// Header is the fixed little-endian file header. Section offsets are
// absolute and aligned to 8 bytes.
type Header struct {
	Magic        [4]byte
	Major        uint16
	Minor        uint16
	Scalar       ScalarType
	Reserved     uint16
	Rows         uint32
	Cols         uint32
	Batches      uint32
	NNZ          uint64
	OuterOffset  uint64
	InnerOffset  uint64
	ValuesOffset uint64
	FileSize     uint64
}

var headerSize = binary.Size(Header{})

func (h *Header) Valid() bool {
	return string(h.Magic[:]) == Magic
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

func (h *Header) outerBytes() uint64  { return 4 * (uint64(h.Rows) + 1) }
func (h *Header) innerBytes() uint64  { return 4 * h.NNZ }
func (h *Header) valuesBytes() uint64 { return scalarSizes[h.Scalar] * h.NNZ * uint64(h.Batches) }

// sectionsFit reports whether every section size is representable and no
// larger than limit bytes. Counts read from an untrusted header must pass
// this before layout or Decode use them.
func (h *Header) sectionsFit(limit uint64) bool {
	if uint64(h.Rows)+1 > limit/4 {
		return false
	}
	hi, inner := bits.Mul64(4, h.NNZ)
	if hi != 0 || inner > limit {
		return false
	}
	hi, perBatch := bits.Mul64(scalarSizes[h.Scalar], h.NNZ)
	if hi != 0 {
		return false
	}
	hi, values := bits.Mul64(perBatch, uint64(h.Batches))
	return hi == 0 && values <= limit
}

// layout fills in the section offsets and file size from the counts.
func (h *Header) layout() {
	h.OuterOffset = align(uint64(headerSize))
	h.InnerOffset = align(h.OuterOffset + h.outerBytes())
	h.ValuesOffset = align(h.InnerOffset + h.innerBytes())
	h.FileSize = h.ValuesOffset + h.valuesBytes()
}

func align(off uint64) uint64 {
	return (off + sectionAlign - 1) &^ (sectionAlign - 1)
}

func (h *Header) String() string {
	return fmt.Sprintf("csr v%d.%d %s %dx%dx%d nnz=%d size=%d",
		h.Major, h.Minor, h.Scalar, h.Rows, h.Cols, h.Batches, h.NNZ, h.FileSize)
}
