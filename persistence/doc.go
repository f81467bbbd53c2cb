//go:build amd64 || arm64

// Package persistence implements the binary snapshot format for built
// indexes.
//
// A snapshot is a 64-byte header, one framed section per stored array
// (points, node layouts, primitive orders, parent links, bounds), and a
// CRC32C trailer over the sections. Sections are written as raw
// little-endian memory and optionally block-compressed, so loading large
// indexes is bounded by IO rather than decoding.
//
// PLATFORM REQUIREMENTS:
//   - Architecture: amd64 or arm64 only
//   - Endianness: little-endian (native on both)
//   - Alignment: element-width alignment for each section slice
//
// The unsafe slice reinterpretation is validated at runtime. See safety.go.
package persistence
