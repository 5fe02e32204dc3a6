package blit

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/gogpu/blit/device"
)

// graphicBacked reports whether a slice came from graphic memory.
func graphicBacked(svc *Service, b []byte) bool {
	if len(b) == 0 {
		return false
	}
	_, _, ok := svc.galloc.Resolve(uintptr(unsafe.Pointer(&b[0])))
	return ok
}

func TestAdapterThresholdRouting(t *testing.T) {
	const minSize = 4096
	svc := newTestService(t, device.Capabilities{},
		WithAllocatorParams(AllocatorParams{MinSize: minSize, Cacheable: true}))
	if err := svc.SetUseAllocator(true); err != nil {
		t.Fatalf("SetUseAllocator: %v", err)
	}
	a := svc.Allocator()

	small := a.Allocate(minSize - 1)
	if graphicBacked(svc, small) {
		t.Error("request below threshold served from graphic memory")
	}
	if len(small) != minSize-1 {
		t.Errorf("len %d, want %d", len(small), minSize-1)
	}

	big := a.Allocate(minSize)
	if !graphicBacked(svc, big) {
		t.Error("request at threshold not served from graphic memory")
	}
	if len(big) != minSize {
		t.Errorf("len %d, want %d", len(big), minSize)
	}
	if got := svc.Stats().Allocations; got != 1 {
		t.Errorf("allocations %d, want 1", got)
	}

	// Free routes by provenance.
	a.Free(small)
	a.Free(big)
	st := svc.Stats()
	if st.Allocations != 0 {
		t.Errorf("allocations %d after free, want 0", st.Allocations)
	}
	if st.CachedCount != 1 {
		t.Errorf("cached count %d, want 1 (graphic buffer retained)", st.CachedCount)
	}
}

func TestAdapterDisabled(t *testing.T) {
	svc := newTestService(t, device.Capabilities{},
		WithAllocatorParams(AllocatorParams{MinSize: 1, Cacheable: true}))
	a := svc.Allocator()

	b := a.Allocate(1 << 16)
	if graphicBacked(svc, b) {
		t.Error("disabled adapter served graphic memory")
	}
	a.Free(b)
}

func TestAdapterZeroSize(t *testing.T) {
	svc := newTestService(t, device.Capabilities{})
	a := svc.Allocator()
	b := a.Allocate(0)
	if len(b) != 0 {
		t.Errorf("len %d, want 0", len(b))
	}
	a.Free(b)
}

func TestAdapterReallocate(t *testing.T) {
	const minSize = 4096
	svc := newTestService(t, device.Capabilities{},
		WithAllocatorParams(AllocatorParams{MinSize: minSize, Cacheable: true}))
	if err := svc.SetUseAllocator(true); err != nil {
		t.Fatalf("SetUseAllocator: %v", err)
	}
	a := svc.Allocator()

	// Grow across the threshold: heap to graphic, contents preserved.
	b := a.Allocate(64)
	for i := range b {
		b[i] = byte(i)
	}
	snapshot := bytes.Clone(b)

	b = a.Reallocate(2*minSize, b)
	if len(b) != 2*minSize {
		t.Fatalf("len %d, want %d", len(b), 2*minSize)
	}
	if !graphicBacked(svc, b) {
		t.Error("grown buffer not in graphic memory")
	}
	if !bytes.Equal(b[:64], snapshot) {
		t.Error("contents lost on grow")
	}

	// Shrink back below the threshold: graphic to heap.
	b = a.Reallocate(64, b)
	if graphicBacked(svc, b) {
		t.Error("shrunk buffer still in graphic memory")
	}
	if !bytes.Equal(b, snapshot) {
		t.Error("contents lost on shrink")
	}
	if got := svc.Stats().Allocations; got != 0 {
		t.Errorf("allocations %d, want 0", got)
	}
	a.Free(b)

	// Same-size reallocation is a no-op.
	c := a.Allocate(minSize)
	if got := a.Reallocate(minSize, c); &got[0] != &c[0] {
		t.Error("same-size reallocate moved the buffer")
	}
	a.Free(c)
}
