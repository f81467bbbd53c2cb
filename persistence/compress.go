package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block codec applied to snapshot sections.
type Compression uint8

const (
	// CompressionNone stores sections as raw bytes.
	CompressionNone Compression = 0
	// CompressionLZ4 favors speed over ratio.
	CompressionLZ4 Compression = 1
	// CompressionZstd favors ratio and is still fast enough for snapshot IO.
	CompressionZstd Compression = 2
)

// Valid reports whether c names a known codec.
func (c Compression) Valid() bool { return c <= CompressionZstd }

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// Zstd encoder/decoder pools. Both are expensive to construct.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Section block layout: [UncompressedSize uint32][CompressedSize uint32][payload].
// CompressedSize == 0 marks a raw payload.
const blockHeaderSize = 8

const maxSectionSize = 1<<32 - 1

// compressBlock frames data as one section block, compressing only when
// the codec actually helps (ratio below 0.9).
func compressBlock(data []byte, c Compression) ([]byte, error) {
	if uint64(len(data)) > maxSectionSize {
		return nil, ErrSectionTooLarge
	}

	var compressed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n] // n == 0 means incompressible
	case CompressionZstd:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockHeaderSize:], compressed)
	return out, nil
}

// readBlockInto reads one section block from r and decodes exactly
// len(dst) payload bytes into dst.
func readBlockInto(r io.Reader, c Compression, dst []byte) error {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	uncompressedSize := binary.LittleEndian.Uint32(hdr[0:])
	compressedSize := binary.LittleEndian.Uint32(hdr[4:])

	if int(uncompressedSize) != len(dst) {
		return fmt.Errorf("%w: section is %d bytes, want %d", ErrCorruptSnapshot, uncompressedSize, len(dst))
	}
	if uncompressedSize == 0 {
		if compressedSize != 0 {
			return fmt.Errorf("%w: empty section carries payload", ErrCorruptSnapshot)
		}
		return nil
	}
	if compressedSize == 0 {
		_, err := io.ReadFull(r, dst)
		return err
	}

	compressed := make([]byte, compressedSize)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return err
	}

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(compressed, dst)
		if err != nil {
			return err
		}
		if n != len(dst) {
			return fmt.Errorf("%w: lz4 block decoded to %d bytes, want %d", ErrCorruptSnapshot, n, len(dst))
		}
		return nil
	case CompressionZstd:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(compressed, dst[:0])
		putZstdDecoder(dec)
		if err != nil {
			return err
		}
		if len(out) != len(dst) {
			return fmt.Errorf("%w: zstd block decoded to %d bytes, want %d", ErrCorruptSnapshot, len(out), len(dst))
		}
		// DecodeAll reallocates when the hint is too small; dst[:0] has
		// exact capacity so this only fires on malformed frames.
		if &out[0] != &dst[0] {
			copy(dst, out)
		}
		return nil
	default:
		return fmt.Errorf("%w: compressed block under codec %q", ErrCorruptSnapshot, c.String())
	}
}
