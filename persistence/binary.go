package persistence

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"unsafe"
)

// SnapshotWriter frames snapshot sections onto an io.Writer and keeps the
// running body checksum. All multi-byte values are little-endian.
type SnapshotWriter struct {
	cw          *ChecksumWriter
	compression Compression
}

// NewSnapshotWriter creates a section writer over w.
func NewSnapshotWriter(w io.Writer, compression Compression) *SnapshotWriter {
	return &SnapshotWriter{cw: NewChecksumWriter(w), compression: compression}
}

// Sum returns the CRC32C of every block written so far.
func (sw *SnapshotWriter) Sum() uint32 { return sw.cw.Sum() }

// writeSection frames one typed section as a compressed block.
func writeSection[E element](sw *SnapshotWriter, vals []E) error {
	raw, err := asBytes(vals)
	if err != nil {
		return err
	}
	block, err := compressBlock(raw, sw.compression)
	if err != nil {
		return err
	}
	_, err = sw.cw.Write(block)
	return err
}

// SnapshotReader mirrors SnapshotWriter on the read path.
type SnapshotReader struct {
	cr          *ChecksumReader
	compression Compression
}

// NewSnapshotReader creates a section reader over r.
func NewSnapshotReader(r io.Reader, compression Compression) *SnapshotReader {
	return &SnapshotReader{cr: NewChecksumReader(r), compression: compression}
}

// Verify compares the running checksum against the stored trailer value.
func (sr *SnapshotReader) Verify(expected uint32) error { return sr.cr.Verify(expected) }

// readSection reads one typed section of count elements, decompressing
// directly into the section's backing memory.
func readSection[E element](sr *SnapshotReader, count int) ([]E, error) {
	size := elementSize[E]()
	if count < 0 || uint64(count)*uint64(size) > maxSectionSize {
		return nil, ErrSectionTooLarge
	}
	if count == 0 {
		return nil, readBlockInto(sr.cr, sr.compression, nil)
	}
	vals := make([]E, count)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), count*size)
	if err := readBlockInto(sr.cr, sr.compression, dst); err != nil {
		return nil, err
	}
	return vals, nil
}

// SaveToFile writes a file atomically: the content goes to a temp file in
// the target directory, which is fsynced and renamed over the destination.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens filename and hands a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}
