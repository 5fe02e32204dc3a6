// Package device defines the boundary to a 2D-blit engine: allocation of
// physically contiguous, DMA-addressable buffers, CPU cache maintenance,
// and submission of blit operations between surface descriptions.
//
// Real hardware bindings (G2D, RGA and friends) live out of tree and
// implement the Device interface. SoftDevice is a pure software emulation
// of the same contract, used by tests and as a development stand-in.
package device

import (
	"errors"
	"unsafe"
)

// Device errors.
var (
	// ErrNotSupported is returned by a device for primitives it does not
	// implement, for example cache maintenance on coherent platforms.
	ErrNotSupported = errors.New("device: operation not supported")

	// ErrClosed is returned when submitting work to a device that is not open.
	ErrClosed = errors.New("device: device not open")

	// ErrAllocFailed is returned when the device cannot allocate a
	// contiguous buffer of the requested size.
	ErrAllocFailed = errors.New("device: buffer allocation failed")
)

// CacheOp selects a CPU cache maintenance operation on a buffer mapping.
type CacheOp int

const (
	// CacheClean writes dirty CPU cache lines back to memory so the device
	// reads up-to-date data.
	CacheClean CacheOp = iota

	// CacheInvalidate discards CPU cache lines so the CPU re-reads memory
	// written by the device.
	CacheInvalidate
)

// String returns the name of the cache operation.
func (op CacheOp) String() string {
	switch op {
	case CacheClean:
		return "clean"
	case CacheInvalidate:
		return "invalidate"
	default:
		return "unknown"
	}
}

// Rotation is the transform attribute of a surface. The engine exposes
// flips and rotations through the same attribute; at most one of them may
// be set on a given surface.
type Rotation int

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
	FlipHorizontal
	FlipVertical
)

// String returns the name of the rotation attribute.
func (r Rotation) String() string {
	switch r {
	case Rotation0:
		return "rot0"
	case Rotation90:
		return "rot90"
	case Rotation180:
		return "rot180"
	case Rotation270:
		return "rot270"
	case FlipHorizontal:
		return "flip-h"
	case FlipVertical:
		return "flip-v"
	default:
		return "unknown"
	}
}

// Capabilities describes static features of a blit engine.
type Capabilities struct {
	// ThreeChannel reports native support for 24-bit, 3-channel surfaces.
	// Engines without it only accept 32-bit, 4-channel surfaces.
	ThreeChannel bool
}

// Buffer is a physically contiguous, device-addressable memory region with
// a CPU mapping. Devices may round the mapping up, typically to a page
// multiple, so len(Pix) can exceed the requested size.
type Buffer struct {
	// Pix is the CPU mapping of the buffer.
	Pix []byte

	// Phys is the bus address the device uses to access the buffer.
	Phys uint64

	// Cacheable reports whether Pix goes through the CPU cache, in which
	// case explicit CacheOp calls are required for CPU/device coherency.
	Cacheable bool
}

// Size returns the usable byte size of the buffer.
func (b *Buffer) Size() int { return len(b.Pix) }

// Base returns the virtual address of the first mapped byte. It identifies
// the buffer for provenance tracking.
func (b *Buffer) Base() uintptr {
	if len(b.Pix) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.Pix[0]))
}

// Contains reports whether addr falls inside the buffer mapping.
func (b *Buffer) Contains(addr uintptr) bool {
	base := b.Base()
	return addr >= base && addr < base+uintptr(len(b.Pix))
}

// Device is a 2D-blit engine. Implementations must be safe for concurrent
// Alloc/Free/CacheOp; Blit/Finish submission order is serialized by the
// caller.
type Device interface {
	// Name returns the engine name (e.g. "g2d", "soft").
	Name() string

	// Open acquires the device context. Alloc and Free may be used before
	// Open; Blit and Finish may not.
	Open() error

	// Close releases the device context.
	Close() error

	// Capabilities returns the engine's static feature flags.
	Capabilities() Capabilities

	// Alloc returns a contiguous buffer of at least size bytes.
	Alloc(size int, cacheable bool) (*Buffer, error)

	// Free releases a buffer obtained from Alloc.
	Free(b *Buffer) error

	// CacheOp performs CPU cache maintenance on the buffer mapping.
	// Engines on fully coherent platforms return ErrNotSupported.
	CacheOp(b *Buffer, op CacheOp) error

	// Blit submits one transform from the in surface to the out surface.
	Blit(in, out *Surface) error

	// Finish blocks until all submitted blits have completed.
	Finish() error
}
