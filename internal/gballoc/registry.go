// Package gballoc implements the graphic buffer allocation core: an
// address-range registry tracking live accelerator buffers, a size-bucketed
// reuse pool in front of the device allocator, and the facade composing
// them behind a guard-based enable interface.
package gballoc

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/blit/device"
)

// ErrInvariant marks a programming error in a caller or in the allocation
// bookkeeping itself: overlapping registrations, releasing an unknown
// handle, accounting mismatches. Continuing after one risks silent data
// corruption; hosts normally treat it as fatal.
var ErrInvariant = errors.New("gballoc: invariant violation")

type regEntry struct {
	base, limit uintptr // [base, limit)
	buf         *device.Buffer
	cacheable   bool
}

// Registry records the set of live accelerator buffers keyed by their
// virtual address range, so any pointer can be classified as
// device-visible or ordinary heap memory. Entries are kept sorted by base
// address and must never overlap.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries []regEntry
	count   int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register records a live buffer. Registering a buffer whose address range
// overlaps a live entry returns ErrInvariant.
func (r *Registry) Register(buf *device.Buffer, cacheable bool) error {
	base := buf.Base()
	limit := base + uintptr(buf.Size())
	if base == 0 || limit <= base {
		return fmt.Errorf("%w: register of empty range", ErrInvariant)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].base >= base
	})
	// The new range must sit strictly between its neighbors.
	if i > 0 && r.entries[i-1].limit > base {
		return fmt.Errorf("%w: range %#x..%#x overlaps a registered buffer", ErrInvariant, base, limit)
	}
	if i < len(r.entries) && r.entries[i].base < limit {
		return fmt.Errorf("%w: range %#x..%#x overlaps a registered buffer", ErrInvariant, base, limit)
	}

	r.entries = append(r.entries, regEntry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = regEntry{base: base, limit: limit, buf: buf, cacheable: cacheable}
	r.count++

	if r.count != len(r.entries) {
		return fmt.Errorf("%w: registry count %d != entries %d", ErrInvariant, r.count, len(r.entries))
	}
	if _, _, ok := r.lookupLocked(base); !ok {
		return fmt.Errorf("%w: registered range not resolvable", ErrInvariant)
	}
	return nil
}

// Unregister removes a live buffer. Unregistering a buffer that is not
// currently registered returns ErrInvariant.
func (r *Registry) Unregister(buf *device.Buffer) error {
	base := buf.Base()

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.indexLocked(base)
	if !ok || r.entries[i].buf != buf {
		return fmt.Errorf("%w: unregister of unknown buffer %#x", ErrInvariant, base)
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	r.count--

	if r.count != len(r.entries) {
		return fmt.Errorf("%w: registry count %d != entries %d", ErrInvariant, r.count, len(r.entries))
	}
	if _, _, ok := r.lookupLocked(base); ok {
		return fmt.Errorf("%w: unregistered range still resolvable", ErrInvariant)
	}
	return nil
}

// Lookup returns the live buffer whose range contains addr, with its
// cacheable attribute, or ok=false for addresses outside any registered
// buffer.
func (r *Registry) Lookup(addr uintptr) (buf *device.Buffer, cacheable bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupLocked(addr)
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// lookupLocked is the no-lock variant of Lookup, used by Register and
// Unregister to check pre and postconditions within one critical section.
func (r *Registry) lookupLocked(addr uintptr) (*device.Buffer, bool, bool) {
	i, ok := r.indexLocked(addr)
	if !ok {
		return nil, false, false
	}
	return r.entries[i].buf, r.entries[i].cacheable, true
}

func (r *Registry) indexLocked(addr uintptr) (int, bool) {
	// First entry with limit > addr; ranges are disjoint and sorted, so it
	// is the only candidate that can contain addr.
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].limit > addr
	})
	if i == len(r.entries) || r.entries[i].base > addr {
		return 0, false
	}
	return i, true
}
