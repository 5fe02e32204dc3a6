package blit

import (
	"fmt"

	"github.com/gogpu/blit/device"
)

// FlipAxis selects the mirror axis of a flip.
type FlipAxis int

const (
	// FlipVertical mirrors around the horizontal axis (upside down).
	FlipVertical FlipAxis = iota

	// FlipHorizontal mirrors around the vertical axis.
	FlipHorizontal

	// FlipBoth mirrors around both axes, equivalent to a 180° rotation.
	FlipBoth

	flipNone FlipAxis = -1
)

// Angle is a rotation angle, clockwise.
type Angle int

const (
	Rotate90 Angle = iota
	Rotate180
	Rotate270

	rotateNone Angle = -1
)

// Flip mirrors src into dst on the blit engine. A both-axes flip is
// re-expressed as a 180° rotation before submission: the engine exposes
// flip and rotation as separate surface attributes that cannot both be
// set, and a 180° rotation is the same transform.
func (s *Service) Flip(src, dst Image, axis FlipAxis) error {
	if !s.Accelerated() {
		return ErrNotAccelerated
	}

	rotate := rotateNone
	if axis == FlipBoth {
		axis = flipNone
		rotate = Rotate180
	}
	return s.transform(src, dst, axis, rotate, PrimitiveFlip)
}

// Rotate turns src into dst on the blit engine by a multiple of 90°
// clockwise. For 90° and 270° the destination dimensions are the source's
// transposed.
func (s *Service) Rotate(src, dst Image, angle Angle) error {
	if !s.Accelerated() {
		return ErrNotAccelerated
	}
	if angle != Rotate90 && angle != Rotate180 && angle != Rotate270 {
		return fmt.Errorf("%w: rotation angle %d", ErrInvariant, angle)
	}
	return s.transform(src, dst, flipNone, angle, PrimitiveRotate)
}

// transform runs the shared flip/rotate path. Unlike resize there is no
// channel emulation: on engines without native 3-channel support the
// conversion overhead is not amortized by a cheap geometric transform, so
// 3-channel calls fall back to software.
func (s *Service) transform(src, dst Image, axis FlipAxis, angle Angle, prim Primitive) error {
	if err := src.validate(); err != nil {
		return err
	}
	if err := dst.validate(); err != nil {
		return err
	}
	if dst.Channels != src.Channels || dst.Depth != src.Depth {
		return fmt.Errorf("%w: transform cannot convert formats", ErrInvariant)
	}

	if !s.transformSupported(&src, &dst, angle) {
		return ErrNotAccelerated
	}

	var inRot device.Rotation
	switch axis {
	case FlipVertical:
		inRot = device.FlipVertical
	case FlipHorizontal:
		inRot = device.FlipHorizontal
	}

	var outRot device.Rotation
	switch angle {
	case Rotate90:
		outRot = device.Rotation90
	case Rotate180:
		outRot = device.Rotation180
	case Rotate270:
		outRot = device.Rotation270
	}

	srcIO := s.classify(&src)
	dstIO := s.classify(&dst)

	return s.run(srcIO, dstIO, src.Channels, false, inRot, outRot, prim)
}

func (s *Service) transformSupported(src, dst *Image, angle Angle) bool {
	if src.Depth != acceleratedDepth {
		return false
	}

	// 4 channels always; 3 channels only natively.
	switch src.Channels {
	case 4:
	case 3:
		if !s.dev.Capabilities().ThreeChannel {
			return false
		}
	default:
		return false
	}

	// The destination must carry the transformed geometry.
	wantW, wantH := src.Width, src.Height
	if angle == Rotate90 || angle == Rotate270 {
		wantW, wantH = src.Height, src.Width
	}
	if dst.Width != wantW || dst.Height != wantH {
		return false
	}

	// In-place operation is unsupported.
	if src.overlaps(dst) {
		return false
	}
	return true
}
