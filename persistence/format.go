package persistence

import "errors"

const (
	// MagicNumber identifies kdgo snapshot files (ASCII: "KDG0").
	MagicNumber = 0x4B444730
	// Version is the current snapshot format version (v1.0.0).
	Version = 0x00010000
)

// Flags marking which tree layouts a snapshot carries.
const (
	FlagDense uint16 = 1 << iota
	FlagSpatial
)

var (
	ErrInvalidMagic    = errors.New("invalid magic number")
	ErrInvalidVersion  = errors.New("unsupported version")
	ErrScalarMismatch  = errors.New("scalar width mismatch")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrSectionTooLarge = errors.New("section exceeds 4GiB limit")
)

// Header is the 64-byte header at the start of every snapshot file.
// The body checksum lives in a 4-byte trailer rather than here so a file
// can be produced in a single streaming pass over an io.Writer.
type Header struct {
	Magic        uint32
	Version      uint32
	ScalarSize   uint8 // 4=float32, 8=float64
	Compression  uint8
	Flags        uint16 // FlagDense | FlagSpatial
	Dims         uint32
	PointCount   uint64
	DenseNodes   uint64
	SpatialNodes uint64
	Reserved     [24]byte // future use
}
