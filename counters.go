package blit

import "sync/atomic"

// Primitive identifies one accelerated transform.
type Primitive int

const (
	PrimitiveFlip Primitive = iota
	PrimitiveResize
	PrimitiveRotate
	numPrimitives
)

// String returns the primitive name.
func (p Primitive) String() string {
	switch p {
	case PrimitiveFlip:
		return "flip"
	case PrimitiveResize:
		return "resize"
	case PrimitiveRotate:
		return "rotate"
	default:
		return "unknown"
	}
}

// Counters tracks successful accelerated invocations per primitive.
// Fallback and failed calls are not counted.
type Counters struct {
	counts [numPrimitives]atomic.Uint64
}

func (c *Counters) inc(p Primitive) {
	c.counts[p].Add(1)
}

// Value returns the invocation count of one primitive.
func (c *Counters) Value(p Primitive) uint64 {
	if p < 0 || p >= numPrimitives {
		return 0
	}
	return c.counts[p].Load()
}
