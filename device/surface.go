package device

import (
	"fmt"
	"unsafe"
)

// Format is the pixel format of a surface.
type Format int

const (
	// FormatBGRA8888 is 32-bit, 4 channels, 8 bits each.
	FormatBGRA8888 Format = iota

	// FormatRGB888 is 24-bit, 3 channels, 8 bits each. Only valid on
	// engines reporting Capabilities.ThreeChannel.
	FormatRGB888
)

// Channels returns the channel count of the format.
func (f Format) Channels() int {
	if f == FormatRGB888 {
		return 3
	}
	return 4
}

// String returns the name of the format.
func (f Format) String() string {
	switch f {
	case FormatBGRA8888:
		return "BGRA8888"
	case FormatRGB888:
		return "RGB888"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Surface describes a rectangle inside a buffer as the engine sees it.
// Width/Height span the whole buffer; the Top/Left/Bottom/Right rectangle
// selects the region the blit reads or writes. Coordinates and strides are
// in pixels.
type Surface struct {
	Buf    *Buffer
	Format Format

	Top, Left     int
	Bottom, Right int

	// Stride is the distance between rows, in pixels.
	Stride int

	// Width is the surface width in pixels (equal to Stride here).
	Width int

	// Height is the number of rows backed by the buffer. Buffers are
	// rounded up on allocation, so this can exceed Bottom.
	Height int

	// Rot is the transform attribute. At most one surface of a blit pair
	// may carry a non-zero value.
	Rot Rotation
}

// RectWidth returns the width of the blit rectangle in pixels.
func (s *Surface) RectWidth() int { return s.Right - s.Left }

// RectHeight returns the height of the blit rectangle in pixels.
func (s *Surface) RectHeight() int { return s.Bottom - s.Top }

// MakeSurface describes the width x height pixel rectangle starting at
// data, which must point inside buf. The rectangle position within the
// surface is derived from the offset of data into the buffer mapping, so
// views into a larger image resolve to the correct sub-rectangle. step is
// the row distance in bytes.
func MakeSurface(buf *Buffer, data []byte, channels, width, height, step int, rot Rotation) (*Surface, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("device: empty surface data")
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	if !buf.Contains(addr) {
		return nil, fmt.Errorf("device: surface data outside buffer")
	}
	if step%channels != 0 {
		return nil, fmt.Errorf("device: step %d not a multiple of pixel size %d", step, channels)
	}

	topBytes := int(addr - buf.Base())
	top := topBytes / step
	leftBytes := topBytes - top*step
	if leftBytes%channels != 0 {
		return nil, fmt.Errorf("device: surface offset %d not pixel aligned", leftBytes)
	}
	left := leftBytes / channels

	format := FormatBGRA8888
	if channels == 3 {
		format = FormatRGB888
	}

	stride := step / channels
	return &Surface{
		Buf:    buf,
		Format: format,
		Top:    top,
		Left:   left,
		Bottom: top + height,
		Right:  left + width,
		Stride: stride,
		Width:  stride,
		Height: buf.Size() / step,
		Rot:    rot,
	}, nil
}
