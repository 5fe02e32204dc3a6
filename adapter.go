package blit

import (
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Adapter is an allocation strategy for external pixel containers,
// implementing arrow's memory.Allocator. Requests of at least the
// configured minimum size are served from graphic memory while the
// adapter is enabled (see Service.SetUseAllocator); everything else, and
// any request graphic memory cannot satisfy, goes to an ordinary heap
// allocator.
//
// Buffers allocated from graphic memory are recognized by the transform
// pipeline and blitted in place, with no staging copy.
type Adapter struct {
	svc  *Service
	heap memory.Allocator
}

var _ memory.Allocator = (*Adapter)(nil)

// Allocator returns the service's allocation strategy for external
// containers.
func (s *Service) Allocator() *Adapter {
	return &Adapter{svc: s, heap: memory.NewGoAllocator()}
}

// Allocate returns a buffer of the requested size. The buffer comes from
// graphic memory when the adapter is enabled, the request meets the size
// threshold and the device can serve it; otherwise from the heap.
func (a *Adapter) Allocate(size int) []byte {
	if size <= 0 {
		return a.heap.Allocate(size)
	}

	s := a.svc
	s.mu.Lock()
	on := s.adapterOn
	params := s.allocParams
	s.mu.Unlock()

	if !on || size < params.MinSize {
		return a.heap.Allocate(size)
	}

	buf, err := s.galloc.Alloc(size, params.Cacheable)
	if err != nil {
		s.log.Warn("graphic allocation failed, using heap", "size", size, "err", err)
		return a.heap.Allocate(size)
	}
	return buf.Pix[:size]
}

// Free releases a buffer obtained from Allocate, routing it back to
// graphic memory or the heap depending on its provenance.
func (a *Adapter) Free(b []byte) {
	if len(b) == 0 {
		return
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	buf, _, ok := a.svc.galloc.Resolve(addr)
	if !ok {
		a.heap.Free(b)
		return
	}
	if err := a.svc.galloc.Free(buf); err != nil {
		a.svc.log.Warn("releasing graphic buffer", "err", err)
	}
}

// Reallocate grows or shrinks a buffer, preserving its contents. The new
// buffer is allocated with the same routing rules as Allocate.
func (a *Adapter) Reallocate(size int, b []byte) []byte {
	if size == len(b) {
		return b
	}
	out := a.Allocate(size)
	copy(out, b)
	a.Free(b)
	return out
}
