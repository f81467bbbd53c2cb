package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/point"
)

// Snapshot is the serializable form of a built index: the flat point array
// plus the node layouts of the trees built over it. The two tree sections
// are independent; a snapshot may carry either or both.
type Snapshot[S point.Scalar] struct {
	Dims    int
	Data    []S
	Dense   *DenseSections[S]
	Spatial *SpatialSections[S]
}

// DenseSections holds the implicit-layout tree.
type DenseSections[S point.Scalar] struct {
	Nodes []kdtree.Node[S]
	Prims []int32
}

// SpatialSections holds the bounds-tracking tree.
type SpatialSections[S point.Scalar] struct {
	Nodes     []kdtree.Node[S]
	Prims     []int32
	Parents   []int32
	BoundsMin []S
	BoundsMax []S
}

// Write streams the snapshot onto w: 64-byte header, one framed block per
// section, CRC32C trailer over the blocks.
func Write[S point.Scalar](w io.Writer, snap *Snapshot[S], compression Compression) error {
	if !compression.Valid() {
		return fmt.Errorf("unknown compression %d", compression)
	}

	hdr := Header{
		Magic:       MagicNumber,
		Version:     Version,
		ScalarSize:  uint8(elementSize[S]()),
		Compression: uint8(compression),
		Dims:        uint32(snap.Dims),
	}
	if snap.Dims > 0 {
		hdr.PointCount = uint64(len(snap.Data) / snap.Dims)
	}
	if snap.Dense != nil {
		hdr.Flags |= FlagDense
		hdr.DenseNodes = uint64(len(snap.Dense.Nodes))
	}
	if snap.Spatial != nil {
		hdr.Flags |= FlagSpatial
		hdr.SpatialNodes = uint64(len(snap.Spatial.Nodes))
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}

	sw := NewSnapshotWriter(w, compression)
	if err := writeSection(sw, snap.Data); err != nil {
		return err
	}
	if snap.Dense != nil {
		if err := writeNodes(sw, snap.Dense.Nodes); err != nil {
			return err
		}
		if err := writeSection(sw, snap.Dense.Prims); err != nil {
			return err
		}
	}
	if snap.Spatial != nil {
		if err := writeNodes(sw, snap.Spatial.Nodes); err != nil {
			return err
		}
		if err := writeSection(sw, snap.Spatial.Prims); err != nil {
			return err
		}
		if err := writeSection(sw, snap.Spatial.Parents); err != nil {
			return err
		}
		if err := writeSection(sw, snap.Spatial.BoundsMin); err != nil {
			return err
		}
		if err := writeSection(sw, snap.Spatial.BoundsMax); err != nil {
			return err
		}
	}

	return binary.Write(w, binary.LittleEndian, sw.Sum())
}

// writeNodes splits nodes into four primitive-typed sections so the file
// layout stays free of struct padding across scalar widths.
func writeNodes[S point.Scalar](sw *SnapshotWriter, nodes []kdtree.Node[S]) error {
	axes := make([]int32, len(nodes))
	pos := make([]S, len(nodes))
	counts := make([]uint32, len(nodes))
	offsets := make([]uint32, len(nodes))
	for i, n := range nodes {
		axes[i] = n.Axis
		pos[i] = n.Pos
		counts[i] = n.Count
		offsets[i] = n.Offset
	}
	if err := writeSection(sw, axes); err != nil {
		return err
	}
	if err := writeSection(sw, pos); err != nil {
		return err
	}
	if err := writeSection(sw, counts); err != nil {
		return err
	}
	return writeSection(sw, offsets)
}

func readNodes[S point.Scalar](sr *SnapshotReader, count int) ([]kdtree.Node[S], error) {
	axes, err := readSection[int32](sr, count)
	if err != nil {
		return nil, err
	}
	pos, err := readSection[S](sr, count)
	if err != nil {
		return nil, err
	}
	counts, err := readSection[uint32](sr, count)
	if err != nil {
		return nil, err
	}
	offsets, err := readSection[uint32](sr, count)
	if err != nil {
		return nil, err
	}

	nodes := make([]kdtree.Node[S], count)
	for i := range nodes {
		nodes[i] = kdtree.Node[S]{Axis: axes[i], Pos: pos[i], Count: counts[i], Offset: offsets[i]}
	}
	return nodes, nil
}

// ReadHeader reads and validates the fixed-size header.
func ReadHeader(r io.Reader) (*Header, error) {
	var hdr Header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, hdr.Magic)
	}
	if hdr.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, hdr.Version)
	}
	if !Compression(hdr.Compression).Valid() {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorruptSnapshot, hdr.Compression)
	}
	// Primitive ids are int32, so section counts beyond that are garbage.
	if hdr.PointCount > math.MaxInt32 || hdr.DenseNodes > math.MaxInt32 || hdr.SpatialNodes > math.MaxInt32 {
		return nil, fmt.Errorf("%w: implausible section counts", ErrCorruptSnapshot)
	}
	return &hdr, nil
}

// Read parses a snapshot written by Write. The scalar type parameter must
// match the width recorded in the header.
func Read[S point.Scalar](r io.Reader) (*Snapshot[S], error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if int(hdr.ScalarSize) != elementSize[S]() {
		return nil, fmt.Errorf("%w: snapshot has %d-byte scalars, want %d", ErrScalarMismatch, hdr.ScalarSize, elementSize[S]())
	}

	sr := NewSnapshotReader(r, Compression(hdr.Compression))

	snap := &Snapshot[S]{Dims: int(hdr.Dims)}
	snap.Data, err = readSection[S](sr, int(hdr.PointCount)*int(hdr.Dims))
	if err != nil {
		return nil, err
	}
	if hdr.Flags&FlagDense != 0 {
		nodes, err := readNodes[S](sr, int(hdr.DenseNodes))
		if err != nil {
			return nil, err
		}
		prims, err := readSection[int32](sr, int(hdr.PointCount))
		if err != nil {
			return nil, err
		}
		snap.Dense = &DenseSections[S]{Nodes: nodes, Prims: prims}
	}
	if hdr.Flags&FlagSpatial != 0 {
		nodes, err := readNodes[S](sr, int(hdr.SpatialNodes))
		if err != nil {
			return nil, err
		}
		prims, err := readSection[int32](sr, int(hdr.PointCount))
		if err != nil {
			return nil, err
		}
		parents, err := readSection[int32](sr, int(hdr.SpatialNodes))
		if err != nil {
			return nil, err
		}
		bmin, err := readSection[S](sr, int(hdr.Dims))
		if err != nil {
			return nil, err
		}
		bmax, err := readSection[S](sr, int(hdr.Dims))
		if err != nil {
			return nil, err
		}
		snap.Spatial = &SpatialSections[S]{
			Nodes:     nodes,
			Prims:     prims,
			Parents:   parents,
			BoundsMin: bmin,
			BoundsMax: bmax,
		}
	}

	var sum uint32
	if err := binary.Read(r, binary.LittleEndian, &sum); err != nil {
		return nil, err
	}
	if err := sr.Verify(sum); err != nil {
		return nil, err
	}
	return snap, nil
}

// Save writes the snapshot to path atomically (temp file plus rename).
func Save[S point.Scalar](path string, snap *Snapshot[S], compression Compression) error {
	return SaveToFile(path, func(w io.Writer) error {
		return Write(w, snap, compression)
	})
}

// Load reads a snapshot from path.
func Load[S point.Scalar](path string) (*Snapshot[S], error) {
	var snap *Snapshot[S]
	err := LoadFromFile(path, func(r io.Reader) error {
		s, err := Read[S](r)
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	return snap, err
}
