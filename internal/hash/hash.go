// Package hash provides the checksum used for snapshot integrity.
//
// Snapshot bodies carry a CRC32-Castagnoli (CRC32C) trailer. Go's crc32
// package dispatches to hardware instructions (SSE4.2 on x86, the CRC
// extension on ARM) when available, so checksumming never dominates
// snapshot IO. CRC32C catches storage corruption; it is not a defense
// against tampering.
package hash

import (
	"hash"
	"hash/crc32"
)

// crc32cTable is computed once at init; MakeTable is not free.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a streaming CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}
