// Package blit accelerates bulk image transforms (resize, flip, rotate)
// by routing eligible operations to a hardware 2D-blit engine, bridging
// transparently between ordinary heap-backed pixel buffers and the
// physically contiguous, DMA-addressable buffers the engine requires.
//
// A Service composes a blit engine (see the device subpackage) with a
// graphic buffer allocator: a provenance registry answering whether a
// pointer is already device-visible, and a bounded reuse cache in front
// of the device allocator. Each transform call classifies its
// buffers, stages data through temporary accelerator buffers when needed,
// performs the required CPU/device cache maintenance, submits the blit
// and copies or converts the result back.
//
// Transform calls return ErrNotAccelerated for operations the engine
// cannot take (unsupported format, interpolation mode, in-place
// transform); the caller is expected to fall back to a software path:
//
//	svc := blit.New(device.NewSoftDevice(device.Capabilities{}))
//	if err := svc.SetAccelerate(true); err != nil { ... }
//	err := svc.Resize(src, dst, blit.InterpLinear)
//	if errors.Is(err, blit.ErrNotAccelerated) {
//		resizeSoftware(src, dst)
//	}
//
// Containers that want their pixel memory device-visible from the start
// can plug Service.Allocator, an arrow memory.Allocator, into their
// allocation extension point; buffers above a configurable size threshold
// then come from graphic memory and skip the staging copy entirely.
package blit
