package persistence

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"
)

var (
	// ErrUnsupportedArchitecture is returned when running on an
	// architecture the raw section layout does not cover.
	ErrUnsupportedArchitecture = errors.New("unsupported architecture: only amd64 and arm64 are supported")

	// ErrBigEndian is returned on big-endian systems.
	ErrBigEndian = errors.New("big-endian systems are not supported")

	// ErrUnalignedAccess is returned when a section slice is not aligned
	// for its element width.
	ErrUnalignedAccess = errors.New("unaligned memory access detected")
)

func init() {
	if err := validatePlatform(); err != nil {
		panic(fmt.Sprintf("kdgo/persistence: %v", err))
	}
}

func validatePlatform() error {
	arch := runtime.GOARCH
	if arch != "amd64" && arch != "arm64" {
		return fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, arch)
	}
	if !isLittleEndian() {
		return ErrBigEndian
	}
	return nil
}

func isLittleEndian() bool {
	var test uint16 = 0x0001
	return *(*byte)(unsafe.Pointer(&test)) == 1
}

// element covers every primitive type stored in a snapshot section.
type element interface {
	~float32 | ~float64 | ~int32 | ~uint32
}

func elementSize[E element]() int {
	var e E
	return int(unsafe.Sizeof(e))
}

// asBytes reinterprets a section slice as its raw little-endian bytes.
// The returned slice aliases vals.
func asBytes[E element](vals []E) ([]byte, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	if err := validateAlignment(vals); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), len(vals)*elementSize[E]()), nil
}

func validateAlignment[E element](vals []E) error {
	if len(vals) == 0 {
		return nil
	}
	size := uintptr(elementSize[E]())
	ptr := uintptr(unsafe.Pointer(&vals[0]))
	if ptr%size != 0 {
		return fmt.Errorf("%w: %d-byte element at address 0x%x", ErrUnalignedAccess, size, ptr)
	}
	return nil
}
