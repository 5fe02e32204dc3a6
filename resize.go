package blit

import (
	"fmt"

	"github.com/gogpu/blit/device"
)

// Interp selects the interpolation mode of a resize.
type Interp int

const (
	InterpNearest Interp = iota
	InterpLinear
	InterpCubic
	InterpArea
	InterpLanczos
)

// String returns the interpolation mode name.
func (i Interp) String() string {
	switch i {
	case InterpNearest:
		return "nearest"
	case InterpLinear:
		return "linear"
	case InterpCubic:
		return "cubic"
	case InterpArea:
		return "area"
	case InterpLanczos:
		return "lanczos"
	default:
		return fmt.Sprintf("Interp(%d)", int(i))
	}
}

// Resize scales src into dst on the blit engine. Only linear
// interpolation of 8-bit images with 3 or 4 channels is accelerated;
// everything else returns ErrNotAccelerated and the caller should resize
// in software. 3-channel images run channel-expanded on engines without
// native 3-channel support: the conversion cost is amortized by the
// resize itself.
func (s *Service) Resize(src, dst Image, interp Interp) error {
	if err := src.validate(); err != nil {
		return err
	}
	if err := dst.validate(); err != nil {
		return err
	}
	if dst.Channels != src.Channels || dst.Depth != src.Depth {
		return fmt.Errorf("%w: resize cannot convert formats", ErrInvariant)
	}

	if !s.Accelerated() {
		return ErrNotAccelerated
	}
	if !resizeSupported(&src, interp) {
		return ErrNotAccelerated
	}

	emulate := src.Channels == 3 && !s.dev.Capabilities().ThreeChannel

	srcIO := s.classify(&src)
	dstIO := s.classify(&dst)

	return s.run(srcIO, dstIO, src.Channels, emulate, device.Rotation0, device.Rotation0, PrimitiveResize)
}

func resizeSupported(src *Image, interp Interp) bool {
	if interp != InterpLinear {
		return false
	}
	if src.Depth != acceleratedDepth {
		return false
	}
	if src.Channels < 3 || src.Channels > 4 {
		return false
	}
	return true
}
