package blit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// collector exports Service statistics and primitive counters as
// Prometheus metrics. All values are read on scrape; nothing is sampled
// in the transform hot path beyond the existing atomic counters.
type collector struct {
	svc *Service

	allocations *prometheus.Desc
	usageBytes  *prometheus.Desc
	cacheBytes  *prometheus.Desc
	cacheCount  *prometheus.Desc
	opsTotal    *prometheus.Desc
}

// Collector returns a prometheus.Collector exporting the Service's
// allocator statistics and per-primitive invocation counters. Register it
// with a prometheus.Registerer of your choice.
func (s *Service) Collector() prometheus.Collector {
	return &collector{
		svc: s,
		allocations: prometheus.NewDesc(
			"blit_allocations",
			"Outstanding graphic buffer allocations.",
			nil, nil),
		usageBytes: prometheus.NewDesc(
			"blit_allocated_bytes",
			"Bytes held by outstanding graphic buffers.",
			nil, nil),
		cacheBytes: prometheus.NewDesc(
			"blit_cache_bytes",
			"Bytes parked in the buffer reuse cache.",
			[]string{"class"}, nil),
		cacheCount: prometheus.NewDesc(
			"blit_cache_entries",
			"Entries parked in the buffer reuse cache.",
			[]string{"class"}, nil),
		opsTotal: prometheus.NewDesc(
			"blit_ops_total",
			"Successful accelerated operations by primitive.",
			[]string{"op"}, nil),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocations
	ch <- c.usageBytes
	ch <- c.cacheBytes
	ch <- c.cacheCount
	ch <- c.opsTotal
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	st := c.svc.Stats()
	ch <- prometheus.MustNewConstMetric(c.allocations, prometheus.GaugeValue, float64(st.Allocations))
	ch <- prometheus.MustNewConstMetric(c.usageBytes, prometheus.GaugeValue, float64(st.UsageBytes))
	ch <- prometheus.MustNewConstMetric(c.cacheBytes, prometheus.GaugeValue, float64(st.CachedBytes), "cacheable")
	ch <- prometheus.MustNewConstMetric(c.cacheBytes, prometheus.GaugeValue, float64(st.UncachedBytes), "uncached")
	ch <- prometheus.MustNewConstMetric(c.cacheCount, prometheus.GaugeValue, float64(st.CachedCount), "cacheable")
	ch <- prometheus.MustNewConstMetric(c.cacheCount, prometheus.GaugeValue, float64(st.UncachedCount), "uncached")
	for p := Primitive(0); p < numPrimitives; p++ {
		ch <- prometheus.MustNewConstMetric(c.opsTotal, prometheus.CounterValue, float64(c.svc.counters.Value(p)), p.String())
	}
}
