package blit

import (
	"errors"
	"fmt"

	"github.com/gogpu/blit/device"
)

// acceleratedDepth is the only channel depth the engine takes.
const acceleratedDepth = 8

// ioBuffer is one side of a blit as the pipeline sees it: the pixel data,
// its geometry, and the graphic buffer backing it, if any.
type ioBuffer struct {
	buf       *device.Buffer // nil when the data is ordinary heap memory
	data      []byte
	step      int
	width     int
	height    int
	cacheable bool
}

// classify resolves the provenance of an image's pixel memory. Images not
// backed by a live graphic buffer are tagged for staging.
func (s *Service) classify(im *Image) ioBuffer {
	io := ioBuffer{
		data:   im.Pix,
		step:   im.Stride,
		width:  im.Width,
		height: im.Height,
	}
	if buf, cacheable, ok := s.galloc.Resolve(im.base()); ok {
		io.buf = buf
		io.cacheable = cacheable
	}
	s.log.Debug("classify", "graphic", io.buf != nil, "cacheable", io.cacheable)
	return io
}

// preprocess stages src and dst for the device. A side needs a temporary
// accelerator buffer when its memory is not device-visible (copy) or when
// the operation runs channel-expanded (conversion); the input temporary
// is populated, the output temporary receives the device result later.
// Temporaries are always allocated cacheable.
//
// On error the returned ioBuffers still reference whatever was allocated
// so far; the caller must run release on every exit path.
func (s *Service) preprocess(src, dst ioBuffer, channels int, emulate bool) (in, out ioBuffer, err error) {
	inCopy := src.buf == nil
	outCopy := dst.buf == nil

	ioCn := channels
	if emulate {
		ioCn = 4
	}

	in = src
	if inCopy || emulate {
		step := src.width * ioCn
		buf, aerr := s.galloc.Alloc(src.height*step, true)
		if aerr != nil {
			return ioBuffer{}, ioBuffer{}, fmt.Errorf("blit: staging input: %w", aerr)
		}
		in = ioBuffer{
			buf:       buf,
			data:      buf.Pix,
			step:      step,
			width:     src.width,
			height:    src.height,
			cacheable: true,
		}
		if emulate {
			expandChannels(in.data, in.step, src.data, src.step, src.width, src.height)
		} else {
			copyRows(in.data, in.step, src.data, src.step, src.width*channels, src.height)
		}
	}

	out = dst
	if outCopy || emulate {
		step := dst.width * ioCn
		buf, aerr := s.galloc.Alloc(dst.height*step, true)
		if aerr != nil {
			return in, ioBuffer{}, fmt.Errorf("blit: staging output: %w", aerr)
		}
		out = ioBuffer{
			buf:       buf,
			data:      buf.Pix,
			step:      step,
			width:     dst.width,
			height:    dst.height,
			cacheable: true,
		}
	}

	return in, out, nil
}

// postprocess moves the device result into the caller's destination when
// it went through a temporary: contract-convert for emulated runs, raw
// copy when only staging was involved. When the device wrote the
// destination directly there is nothing to do.
func (s *Service) postprocess(dst, out ioBuffer, channels int, emulate bool) {
	switch {
	case emulate:
		contractChannels(dst.data, dst.step, out.data, out.step, dst.width, dst.height)
	case dst.buf == nil:
		copyRows(dst.data, dst.step, out.data, out.step, dst.width*channels, dst.height)
	}
}

// release frees the temporaries allocated by preprocess. It must run on
// every exit path of a transform, success or failure.
func (s *Service) release(src, dst, in, out ioBuffer, emulate bool) {
	if (src.buf == nil || emulate) && in.buf != nil {
		if err := s.galloc.Free(in.buf); err != nil {
			s.log.Warn("releasing input temporary", "err", err)
		}
	}
	if (dst.buf == nil || emulate) && out.buf != nil {
		if err := s.galloc.Free(out.buf); err != nil {
			s.log.Warn("releasing output temporary", "err", err)
		}
	}
}

// maintain issues one cache maintenance operation, tolerating engines
// that do not implement it.
func (s *Service) maintain(b *device.Buffer, op device.CacheOp) error {
	err := s.dev.CacheOp(b, op)
	if err != nil && !errors.Is(err, device.ErrNotSupported) {
		return fmt.Errorf("blit: cache %s: %w", op, err)
	}
	return nil
}

// run executes the staged pipeline for one transform: cache clean, blit
// submission, cache invalidate, result extraction. src/dst are the
// caller's buffers, in/out the staged device views, inRot/outRot the
// surface transform attributes.
func (s *Service) run(src, dst ioBuffer, channels int, emulate bool, inRot, outRot device.Rotation, prim Primitive) error {
	in, out, err := s.preprocess(src, dst, channels, emulate)
	defer s.release(src, dst, in, out, emulate)
	if err != nil {
		return err
	}

	// The device must read data the CPU just wrote.
	if in.cacheable {
		if err := s.maintain(in.buf, device.CacheClean); err != nil {
			return err
		}
	}

	ioCn := channels
	if emulate {
		ioCn = 4
	}
	inSurf, err := device.MakeSurface(in.buf, in.data, ioCn, in.width, in.height, in.step, inRot)
	if err != nil {
		return err
	}
	outSurf, err := device.MakeSurface(out.buf, out.data, ioCn, out.width, out.height, out.step, outRot)
	if err != nil {
		return err
	}

	if err := s.submit(inSurf, outSurf); err != nil {
		return err
	}

	// The CPU must not read stale lines over the device's write.
	if out.cacheable {
		if err := s.maintain(out.buf, device.CacheInvalidate); err != nil {
			return err
		}
	}

	s.postprocess(dst, out, channels, emulate)
	s.counters.inc(prim)
	return nil
}
