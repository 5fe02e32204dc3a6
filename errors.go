package blit

import (
	"errors"

	"github.com/gogpu/blit/internal/gballoc"
)

// ErrNotAccelerated indicates the engine cannot take this operation.
// The caller should transparently fall back to a software path. It is a
// routing signal, not a failure: nothing has been allocated or submitted
// when it is returned.
var ErrNotAccelerated = errors.New("blit: operation not accelerated")

// ErrInvariant marks a programming error: overlapping buffer
// registrations, double frees, cache accounting mismatches. State may be
// corrupt after one; hosts normally treat it as fatal.
var ErrInvariant = gballoc.ErrInvariant
