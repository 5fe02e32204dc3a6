package gballoc

import (
	"errors"
	"testing"

	"github.com/gogpu/blit/device"
)

// slabBuffers carves n buffers of size bytes each out of one backing
// slab, so tests can build precisely overlapping or adjacent ranges.
func slabBuffers(n, size int) []*device.Buffer {
	slab := make([]byte, n*size)
	bufs := make([]*device.Buffer, n)
	for i := range bufs {
		bufs[i] = &device.Buffer{Pix: slab[i*size : (i+1)*size]}
	}
	return bufs
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	bufs := slabBuffers(3, 4096)

	if err := r.Register(bufs[0], true); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(bufs[2], false); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Interior address resolves to the containing buffer.
	got, cacheable, ok := r.Lookup(bufs[0].Base() + 100)
	if !ok {
		t.Fatal("expected lookup hit inside first buffer")
	}
	if got != bufs[0] {
		t.Error("lookup returned wrong buffer")
	}
	if !cacheable {
		t.Error("expected cacheable attribute preserved")
	}

	got, cacheable, ok = r.Lookup(bufs[2].Base() + 4095)
	if !ok || got != bufs[2] || cacheable {
		t.Errorf("last-byte lookup: ok=%v cacheable=%v", ok, cacheable)
	}

	// The unregistered gap between them misses.
	if _, _, ok := r.Lookup(bufs[1].Base()); ok {
		t.Error("expected miss for unregistered range")
	}
	// One past the end of a range misses.
	if _, _, ok := r.Lookup(bufs[0].Base() + 4096); ok {
		t.Error("expected miss one past range end")
	}
}

func TestRegistryOverlapRejected(t *testing.T) {
	r := NewRegistry()
	slab := make([]byte, 16384)
	whole := &device.Buffer{Pix: slab}
	if err := r.Register(whole, false); err != nil {
		t.Fatalf("register: %v", err)
	}

	overlapping := []*device.Buffer{
		{Pix: slab},              // identical range
		{Pix: slab[4096:8192]},   // nested
		{Pix: slab[12288:16384]}, // tail
	}
	for _, b := range overlapping {
		if err := r.Register(b, false); !errors.Is(err, ErrInvariant) {
			t.Errorf("register of overlapping range: err=%v, want ErrInvariant", err)
		}
	}

	// Still exactly one live entry; no silent merge happened.
	if r.Len() != 1 {
		t.Errorf("registry holds %d entries, want 1", r.Len())
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	bufs := slabBuffers(2, 4096)

	if err := r.Register(bufs[0], false); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Unregister(bufs[0]); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, _, ok := r.Lookup(bufs[0].Base()); ok {
		t.Error("expected miss after unregister")
	}

	// Double unregister and unregister of a never-registered buffer are
	// caller bugs.
	if err := r.Unregister(bufs[0]); !errors.Is(err, ErrInvariant) {
		t.Errorf("double unregister: err=%v, want ErrInvariant", err)
	}
	if err := r.Unregister(bufs[1]); !errors.Is(err, ErrInvariant) {
		t.Errorf("unknown unregister: err=%v, want ErrInvariant", err)
	}
}

func TestRegistryManyDisjoint(t *testing.T) {
	r := NewRegistry()
	bufs := slabBuffers(16, 512)

	// Register in a scrambled order; the registry keeps them sorted.
	order := []int{7, 2, 11, 0, 15, 4, 9, 1, 13, 6, 3, 10, 8, 14, 5, 12}
	for _, i := range order {
		if err := r.Register(bufs[i], i%2 == 0); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	for i, b := range bufs {
		got, cacheable, ok := r.Lookup(b.Base() + 256)
		if !ok || got != b {
			t.Fatalf("lookup %d failed", i)
		}
		if cacheable != (i%2 == 0) {
			t.Errorf("lookup %d: cacheable=%v", i, cacheable)
		}
	}

	for _, b := range bufs {
		if err := r.Unregister(b); err != nil {
			t.Fatalf("unregister: %v", err)
		}
	}
	if r.Len() != 0 {
		t.Errorf("registry holds %d entries after full unregister", r.Len())
	}
}
