package blit

import (
	"log/slog"

	"github.com/gogpu/blit/internal/gballoc"
)

// Default configuration values.
const (
	// DefaultAllocatorMinSize is the minimum request size served from
	// graphic memory by the allocator adapter. Roughly a 96x96 3-channel
	// image; anything smaller is not worth a contiguous buffer.
	DefaultAllocatorMinSize = 8 * 4096

	// DefaultAllocatorCacheable is the cacheability of adapter
	// allocations.
	DefaultAllocatorCacheable = true

	// DefaultCacheBytes is the reuse cache byte limit per class.
	DefaultCacheBytes = gballoc.DefaultCacheBytes

	// DefaultCacheCount is the reuse cache entry limit per class.
	DefaultCacheCount = gballoc.DefaultCacheCount
)

// AllocatorParams configures the allocator adapter.
type AllocatorParams struct {
	// MinSize is the minimum request size, in bytes, served from graphic
	// memory. Smaller requests go to the heap.
	MinSize int

	// Cacheable sets the CPU cacheability of adapter allocations.
	// Cacheable mappings are faster for CPU access but require cache
	// maintenance around device operations.
	Cacheable bool
}

// CacheParams configures the buffer reuse caches.
type CacheParams struct {
	// MaxBytes is the aggregate byte limit of one reuse cache.
	MaxBytes int

	// MaxCount is the entry limit of one reuse cache.
	MaxCount int
}

// Option configures a Service during creation.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger      *slog.Logger
	allocParams AllocatorParams
	cacheParams CacheParams
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		allocParams: AllocatorParams{MinSize: DefaultAllocatorMinSize, Cacheable: DefaultAllocatorCacheable},
		cacheParams: CacheParams{MaxBytes: DefaultCacheBytes, MaxCount: DefaultCacheCount},
	}
}

// WithLogger sets the logger for this Service. By default the Service
// uses the package logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) { o.logger = l }
}

// WithAllocatorParams sets the initial allocator adapter configuration.
func WithAllocatorParams(p AllocatorParams) Option {
	return func(o *serviceOptions) { o.allocParams = p }
}

// WithCacheParams sets the initial reuse cache limits.
func WithCacheParams(p CacheParams) Option {
	return func(o *serviceOptions) { o.cacheParams = p }
}
