package gballoc

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/blit/device"
)

// Stats is a snapshot of allocator accounting. Allocated figures cover
// buffers handed out to consumers only; buffers parked in the reuse caches
// are reported under the cache figures.
type Stats struct {
	// Allocations is the number of outstanding buffers.
	Allocations int

	// Usage is the byte total of outstanding buffers.
	Usage int

	// CachedBytes / CachedCount describe the cacheable-class reuse cache.
	CachedBytes int
	CachedCount int

	// UncachedBytes / UncachedCount describe the non-cacheable class.
	UncachedBytes int
	UncachedCount int
}

// Allocator composes the registry and the reuse pool behind a
// guard-counted enable interface. Buffers it hands out are always
// registered; buffers it takes back are always unregistered before
// returning to the pool, so the registry view matches exactly the set of
// in-use accelerator buffers at all times.
//
// The facade mutex guards the guard count and statistics only; it is
// never held across calls into the registry or the pool, which carry
// their own locks.
type Allocator struct {
	registry *Registry
	pool     *Pool
	log      *slog.Logger

	mu          sync.Mutex
	guardCount  int
	allocations int
	usage       int
}

// New creates an allocator on top of the given device allocator. Pool
// caching stays off until the first guard is acquired.
func New(dev DeviceAllocator, log *slog.Logger) *Allocator {
	return &Allocator{
		registry: NewRegistry(),
		pool:     NewPool(dev, log),
		log:      log,
	}
}

// Guard keeps the allocator active while held. Guards are returned by
// Enable and released with Release; the reuse caches are live while at
// least one guard is alive.
type Guard struct {
	a    *Allocator
	once sync.Once
}

// Enable activates the allocator and returns the guard that keeps it
// active. The pool caches turn on at the first live guard.
func (a *Allocator) Enable() (*Guard, error) {
	a.mu.Lock()
	a.guardCount++
	first := a.guardCount == 1
	a.mu.Unlock()

	if first {
		if err := a.pool.SetUseCache(true); err != nil {
			return nil, err
		}
		a.log.Debug("graphic allocator enabled")
	}
	return &Guard{a: a}, nil
}

// Release deactivates the guard. When the last guard is released, the
// reuse caches are drained and turned off. Release is idempotent.
func (g *Guard) Release() error {
	var err error
	g.once.Do(func() {
		a := g.a
		a.mu.Lock()
		if a.guardCount == 0 {
			a.mu.Unlock()
			err = fmt.Errorf("%w: guard release without enable", ErrInvariant)
			return
		}
		a.guardCount--
		last := a.guardCount == 0
		a.mu.Unlock()

		if last {
			err = a.pool.SetUseCache(false)
			a.log.Debug("graphic allocator disabled")
		}
	})
	return err
}

// Alloc obtains a buffer of at least size bytes, registers it as a live
// accelerator buffer and updates usage accounting. On failure no
// registration or accounting takes place.
func (a *Allocator) Alloc(size int, cacheable bool) (*device.Buffer, error) {
	b, err := a.pool.Alloc(size, cacheable)
	if err != nil {
		return nil, err
	}
	if err := a.registry.Register(b, cacheable); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.allocations++
	a.usage += b.Size()
	a.mu.Unlock()

	return b, nil
}

// Free releases a buffer previously obtained from Alloc. Releasing a
// buffer the registry does not know returns ErrInvariant.
func (a *Allocator) Free(b *device.Buffer) error {
	reg, cacheable, ok := a.registry.Lookup(b.Base())
	if !ok {
		return fmt.Errorf("%w: free of unknown handle %#x", ErrInvariant, b.Base())
	}
	if reg != b {
		return fmt.Errorf("%w: handle %#x does not match registered buffer", ErrInvariant, b.Base())
	}
	if err := a.registry.Unregister(b); err != nil {
		return err
	}

	a.mu.Lock()
	a.allocations--
	a.usage -= b.Size()
	a.mu.Unlock()

	return a.pool.Free(b, cacheable)
}

// Resolve reports whether addr lies inside a live accelerator buffer and
// returns that buffer with its cacheable attribute.
func (a *Allocator) Resolve(addr uintptr) (*device.Buffer, bool, bool) {
	return a.registry.Lookup(addr)
}

// SetCacheConfig applies new reuse cache limits, draining the caches
// first.
func (a *Allocator) SetCacheConfig(byteLimit, countLimit int) error {
	return a.pool.SetConfig(byteLimit, countLimit)
}

// Stats returns a snapshot of allocator and cache accounting.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	s := Stats{
		Allocations: a.allocations,
		Usage:       a.usage,
	}
	a.mu.Unlock()

	s.CachedBytes = a.pool.CacheUsage(true)
	s.CachedCount = a.pool.CacheCount(true)
	s.UncachedBytes = a.pool.CacheUsage(false)
	s.UncachedCount = a.pool.CacheCount(false)
	return s
}
