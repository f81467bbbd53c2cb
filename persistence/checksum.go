package persistence

import (
	"fmt"
	gohash "hash"
	"io"

	"github.com/hupe1980/kdgo/internal/hash"
)

// Snapshot bodies carry a CRC32-Castagnoli trailer; see internal/hash.

// ChecksumWriter wraps an io.Writer and keeps a running CRC32C of
// everything written through it.
type ChecksumWriter struct {
	w    io.Writer
	hash gohash.Hash32
}

// NewChecksumWriter creates a checksumming writer.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{w: w, hash: hash.NewCRC32C()}
}

// Write implements io.Writer.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	if _, err := cw.hash.Write(p); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}

// Sum returns the checksum of the bytes written so far.
func (cw *ChecksumWriter) Sum() uint32 { return cw.hash.Sum32() }

// ChecksumReader mirrors ChecksumWriter on the read path.
type ChecksumReader struct {
	r    io.Reader
	hash gohash.Hash32
}

// NewChecksumReader creates a checksumming reader.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{r: r, hash: hash.NewCRC32C()}
}

// Read implements io.Reader.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		if _, hashErr := cr.hash.Write(p[:n]); hashErr != nil {
			return n, hashErr
		}
	}
	return n, err
}

// Sum returns the checksum of the bytes read so far.
func (cr *ChecksumReader) Sum() uint32 { return cr.hash.Sum32() }

// Verify compares the running checksum against the stored trailer value.
func (cr *ChecksumReader) Verify(expected uint32) error {
	if actual := cr.Sum(); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}
