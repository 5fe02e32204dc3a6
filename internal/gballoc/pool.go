package gballoc

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/blit/device"
)

// Default pool cache limits.
const (
	// DefaultCacheBytes is the default byte limit of one reuse cache.
	DefaultCacheBytes = 64 * 1024 * 1024

	// DefaultCacheCount is the default entry limit of one reuse cache.
	DefaultCacheCount = 16
)

// DeviceAllocator is the slice of the device interface the pool depends
// on. device.Device satisfies it.
type DeviceAllocator interface {
	Alloc(size int, cacheable bool) (*device.Buffer, error)
	Free(b *device.Buffer) error
}

// Pool serves graphic buffer allocations through two independent reuse
// caches, one per cacheability class. Freed buffers are retained for fast
// reuse instead of being returned to the device; capacity limits are
// enforced on every insertion by evicting the oldest entries first.
type Pool struct {
	cached   poolClass
	uncached poolClass
}

// NewPool creates a pool with default cache limits. Caching starts
// disabled; until enabled, requests pass straight through to the device.
func NewPool(dev DeviceAllocator, log *slog.Logger) *Pool {
	return &Pool{
		cached:   poolClass{dev: dev, log: log, cacheable: true, byteLimit: DefaultCacheBytes, countLimit: DefaultCacheCount},
		uncached: poolClass{dev: dev, log: log, cacheable: false, byteLimit: DefaultCacheBytes, countLimit: DefaultCacheCount},
	}
}

// Alloc returns a buffer of at least size bytes for the given
// cacheability class, reusing a cached buffer when a good fit exists.
func (p *Pool) Alloc(size int, cacheable bool) (*device.Buffer, error) {
	return p.class(cacheable).alloc(size)
}

// Free returns a buffer to the pool. It is either retained in the reuse
// cache or, when caching is off or capacity would be exceeded outright,
// released to the device.
func (p *Pool) Free(b *device.Buffer, cacheable bool) error {
	return p.class(cacheable).free(b)
}

// SetUseCache enables or disables buffer reuse on both classes. Disabling
// drains the caches first.
func (p *Pool) SetUseCache(enable bool) error {
	if err := p.cached.setUseCache(enable); err != nil {
		return err
	}
	return p.uncached.setUseCache(enable)
}

// SetConfig applies new cache limits to both classes. The caches are
// drained first so no capacity violation survives reconfiguration.
func (p *Pool) SetConfig(byteLimit, countLimit int) error {
	if err := p.cached.setConfig(byteLimit, countLimit); err != nil {
		return err
	}
	return p.uncached.setConfig(byteLimit, countLimit)
}

// CacheUsage returns the cached byte count of one cacheability class.
func (p *Pool) CacheUsage(cacheable bool) int {
	return p.class(cacheable).cacheUsage()
}

// CacheCount returns the cached entry count of one cacheability class.
func (p *Pool) CacheCount(cacheable bool) int {
	return p.class(cacheable).cacheCount()
}

func (p *Pool) class(cacheable bool) *poolClass {
	if cacheable {
		return &p.cached
	}
	return &p.uncached
}

// poolClass is one reuse cache. Entries are kept in insertion order; the
// front is the oldest and the first evicted.
type poolClass struct {
	dev       DeviceAllocator
	log       *slog.Logger
	cacheable bool

	mu         sync.Mutex
	enabled    bool
	byteLimit  int
	countLimit int
	usage      int
	entries    []*device.Buffer
}

func (c *poolClass) alloc(size int) (*device.Buffer, error) {
	c.mu.Lock()
	if !c.enabled || len(c.entries) == 0 {
		c.mu.Unlock()
		return c.devAlloc(size)
	}

	// Bounded-headroom best fit: the smallest entry of at least the
	// requested size, rejecting anything more than double the request so
	// grossly oversized buffers are not retained for small allocations.
	match := -1
	matchHeadroom := math.MaxInt
	for i, b := range c.entries {
		if b.Size() < size {
			continue
		}
		headroom := b.Size() - size
		if headroom <= size && headroom < matchHeadroom {
			match = i
			matchHeadroom = headroom
		}
		if matchHeadroom == 0 {
			break
		}
	}
	if match < 0 {
		c.mu.Unlock()
		return c.devAlloc(size)
	}

	b := c.entries[match]
	c.entries = append(c.entries[:match], c.entries[match+1:]...)
	c.usage -= b.Size()

	if err := c.checkLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	c.log.Debug("pool reuse", "cacheable", c.cacheable, "size", size,
		"bufSize", b.Size(), "headroom", matchHeadroom)
	return b, nil
}

func (c *poolClass) devAlloc(size int) (*device.Buffer, error) {
	b, err := c.dev.Alloc(size, c.cacheable)
	if err != nil {
		return nil, fmt.Errorf("gballoc: device allocation of %d bytes: %w", size, err)
	}
	c.log.Debug("pool alloc", "cacheable", c.cacheable, "size", size, "bufSize", b.Size())
	return b, nil
}

func (c *poolClass) free(b *device.Buffer) error {
	size := b.Size()

	c.mu.Lock()
	if !c.enabled || c.countLimit < 1 || size > c.byteLimit {
		c.mu.Unlock()
		c.log.Debug("pool free", "cacheable", c.cacheable, "size", size)
		return c.dev.Free(b)
	}

	// Pop oldest entries, regardless of size, until the freed buffer fits
	// within both limits.
	for len(c.entries)+1 > c.countLimit || c.usage+size > c.byteLimit {
		if len(c.entries) == 0 {
			c.mu.Unlock()
			return fmt.Errorf("%w: eviction from empty cache", ErrInvariant)
		}
		oldest := c.entries[0]
		c.entries = c.entries[1:]
		c.usage -= oldest.Size()
		c.log.Debug("pool evict", "cacheable", c.cacheable, "size", oldest.Size(),
			"usage", c.usage, "count", len(c.entries))
		if err := c.dev.Free(oldest); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("gballoc: evicting cached buffer: %w", err)
		}
	}

	c.entries = append(c.entries, b)
	c.usage += size

	err := c.checkLocked()
	if err == nil && (c.usage > c.byteLimit || len(c.entries) > c.countLimit) {
		err = fmt.Errorf("%w: cache over capacity after insert", ErrInvariant)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.log.Debug("pool retain", "cacheable", c.cacheable, "size", size)
	return nil
}

func (c *poolClass) setUseCache(enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !enable && c.enabled {
		if err := c.drainLocked(); err != nil {
			return err
		}
	}
	c.enabled = enable
	return nil
}

func (c *poolClass) setConfig(byteLimit, countLimit int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.drainLocked(); err != nil {
		return err
	}
	c.byteLimit = byteLimit
	c.countLimit = countLimit
	return nil
}

func (c *poolClass) drainLocked() error {
	for len(c.entries) > 0 {
		b := c.entries[len(c.entries)-1]
		c.entries = c.entries[:len(c.entries)-1]
		c.usage -= b.Size()
		if err := c.dev.Free(b); err != nil {
			return fmt.Errorf("gballoc: draining cached buffer: %w", err)
		}
	}
	if c.usage != 0 {
		return fmt.Errorf("%w: cache usage %d after drain", ErrInvariant, c.usage)
	}
	return nil
}

func (c *poolClass) cacheUsage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

func (c *poolClass) cacheCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *poolClass) checkLocked() error {
	if c.usage < 0 {
		return fmt.Errorf("%w: negative cache usage %d", ErrInvariant, c.usage)
	}
	return nil
}
