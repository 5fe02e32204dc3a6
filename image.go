package blit

import (
	"fmt"
	"unsafe"
)

// Image describes a rectangular interleaved pixel buffer. It carries no
// ownership: Pix may be heap memory, a graphic buffer obtained through
// Service.Allocator, or a view into either.
type Image struct {
	// Pix holds the pixels, row by row. Pix may be a sub-slice of a
	// larger allocation; provenance is resolved from its base address.
	Pix []byte

	// Stride is the distance between rows, in bytes.
	Stride int

	// Width and Height are the image dimensions in pixels.
	Width, Height int

	// Channels is the interleaved channel count. The engine accepts 3 or
	// 4; anything else falls back to software.
	Channels int

	// Depth is the bit width of one channel. Only 8 is accelerated.
	Depth int
}

// validate checks the descriptor for internal consistency. It reports
// caller errors, not eligibility: an inconsistent descriptor is a bug,
// not a fallback case.
func (im *Image) validate() error {
	if im.Width <= 0 || im.Height <= 0 {
		return fmt.Errorf("%w: image dimensions %dx%d", ErrInvariant, im.Width, im.Height)
	}
	if im.Channels <= 0 || im.Depth <= 0 {
		return fmt.Errorf("%w: image format %d channels, depth %d", ErrInvariant, im.Channels, im.Depth)
	}
	if im.Stride < im.Width*im.Channels*im.Depth/8 {
		return fmt.Errorf("%w: stride %d below row size", ErrInvariant, im.Stride)
	}
	if need := (im.Height-1)*im.Stride + im.Width*im.Channels*im.Depth/8; len(im.Pix) < need {
		return fmt.Errorf("%w: pixel buffer %d bytes, need %d", ErrInvariant, len(im.Pix), need)
	}
	return nil
}

// base returns the virtual address of the first pixel byte.
func (im *Image) base() uintptr {
	if len(im.Pix) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&im.Pix[0]))
}

// byteSpan returns the number of bytes the image occupies in Pix.
func (im *Image) byteSpan() int {
	return (im.Height-1)*im.Stride + im.Width*im.Channels*im.Depth/8
}

// overlaps reports whether the pixel spans of two images share memory.
func (im *Image) overlaps(other *Image) bool {
	a0, a1 := im.base(), im.base()+uintptr(im.byteSpan())
	b0, b1 := other.base(), other.base()+uintptr(other.byteSpan())
	return a0 < b1 && b0 < a1
}
