package blit

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/blit/device"
	"github.com/gogpu/blit/internal/gballoc"
)

// Stats is a snapshot of allocator and cache accounting. Usage figures
// cover buffers handed out to consumers; buffers parked in the reuse
// caches appear under the cache figures only.
type Stats struct {
	// Allocations is the number of outstanding graphic buffers.
	Allocations int

	// UsageBytes is the byte total of outstanding graphic buffers.
	UsageBytes int

	// CachedBytes and CachedCount describe the cacheable-class reuse
	// cache; UncachedBytes and UncachedCount the non-cacheable class.
	CachedBytes   int
	CachedCount   int
	UncachedBytes int
	UncachedCount int
}

// Service owns one blit engine and the graphic buffer allocator in front
// of it. It is the composition root of the package: construct one per
// device, enable acceleration, and hand it to whatever dispatches
// transforms.
//
// Service is safe for concurrent use. Transform calls from any number of
// goroutines are allowed; device submission is serialized internally.
type Service struct {
	dev    device.Device
	galloc *gballoc.Allocator
	log    *slog.Logger

	counters Counters

	mu           sync.Mutex
	accel        bool
	hwGuard      *gballoc.Guard
	adapterOn    bool
	adapterGuard *gballoc.Guard
	allocParams  AllocatorParams

	// blitMu serializes Blit+Finish pairs. The engine contract does not
	// promise concurrent submission safety, so the Service does not
	// assume it.
	blitMu sync.Mutex
}

// New creates a Service on top of the given blit engine. Acceleration and
// the allocator adapter start disabled.
func New(dev device.Device, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	s := &Service{
		dev:         dev,
		galloc:      gballoc.New(dev, log),
		log:         log,
		allocParams: o.allocParams,
	}
	if err := s.galloc.SetCacheConfig(o.cacheParams.MaxBytes, o.cacheParams.MaxCount); err != nil {
		// The caches are empty at construction; this cannot drain anything.
		log.Warn("applying initial cache limits", "err", err)
	}
	return s
}

// SetAccelerate enables or disables hardware acceleration. Enabling opens
// the device context and activates buffer reuse; disabling closes the
// context and drains the caches.
func (s *Service) SetAccelerate(enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enable == s.accel {
		return nil
	}

	if enable {
		if err := s.dev.Open(); err != nil {
			return fmt.Errorf("blit: opening device %q: %w", s.dev.Name(), err)
		}
		guard, err := s.galloc.Enable()
		if err != nil {
			_ = s.dev.Close()
			return err
		}
		s.hwGuard = guard
		s.accel = true
		s.log.Info("acceleration enabled", "device", s.dev.Name())
		return nil
	}

	if err := s.dev.Close(); err != nil {
		return fmt.Errorf("blit: closing device %q: %w", s.dev.Name(), err)
	}
	err := s.hwGuard.Release()
	s.hwGuard = nil
	s.accel = false
	s.log.Info("acceleration disabled", "device", s.dev.Name())
	return err
}

// Accelerated reports whether hardware acceleration is enabled.
func (s *Service) Accelerated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accel
}

// SetUseAllocator enables or disables the allocator adapter. While
// enabled, Allocator serves requests above the configured threshold from
// graphic memory.
func (s *Service) SetUseAllocator(enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enable == s.adapterOn {
		return nil
	}

	if enable {
		guard, err := s.galloc.Enable()
		if err != nil {
			return err
		}
		s.adapterGuard = guard
		s.adapterOn = true
		s.log.Info("graphic allocator adapter enabled",
			"minSize", s.allocParams.MinSize, "cacheable", s.allocParams.Cacheable)
		return nil
	}

	err := s.adapterGuard.Release()
	s.adapterGuard = nil
	s.adapterOn = false
	s.log.Info("graphic allocator adapter disabled")
	return err
}

// UsingAllocator reports whether the allocator adapter is enabled.
func (s *Service) UsingAllocator() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapterOn
}

// SetAllocatorParams reconfigures the allocator adapter. The adapter must
// be disabled; reconfiguring it while live would strand buffers across
// threshold changes.
func (s *Service) SetAllocatorParams(p AllocatorParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adapterOn {
		return fmt.Errorf("%w: allocator reconfigured while enabled", ErrInvariant)
	}
	s.allocParams = p
	return nil
}

// SetBufferCacheParams applies new reuse cache limits. The caches are
// drained first, so the limits hold immediately.
func (s *Service) SetBufferCacheParams(p CacheParams) error {
	return s.galloc.SetCacheConfig(p.MaxBytes, p.MaxCount)
}

// Stats returns a snapshot of allocator and cache accounting.
func (s *Service) Stats() Stats {
	st := s.galloc.Stats()
	return Stats{
		Allocations:   st.Allocations,
		UsageBytes:    st.Usage,
		CachedBytes:   st.CachedBytes,
		CachedCount:   st.CachedCount,
		UncachedBytes: st.UncachedBytes,
		UncachedCount: st.UncachedCount,
	}
}

// CounterValue returns the number of successful accelerated invocations
// of one primitive.
func (s *Service) CounterValue(p Primitive) uint64 {
	return s.counters.Value(p)
}

// Close disables the adapter and acceleration. The Service must not be
// used afterwards.
func (s *Service) Close() error {
	if err := s.SetUseAllocator(false); err != nil {
		return err
	}
	return s.SetAccelerate(false)
}

// submit sends one blit to the device and waits for completion.
func (s *Service) submit(in, out *device.Surface) error {
	s.blitMu.Lock()
	defer s.blitMu.Unlock()
	if err := s.dev.Blit(in, out); err != nil {
		return fmt.Errorf("blit: submitting blit: %w", err)
	}
	if err := s.dev.Finish(); err != nil {
		return fmt.Errorf("blit: waiting for completion: %w", err)
	}
	return nil
}
