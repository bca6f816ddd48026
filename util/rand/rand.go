// Package rand builds the explicit, seedable generators the scheduler
// draws from. Nothing here touches a process-global source.
package rand

import (
	"time"

	xrand "golang.org/x/exp/rand"
)

// NewRand returns a PCG-backed generator. The same seed yields the same
// sequence of draws.
func NewRand(seed uint64) *xrand.Rand {
	return xrand.New(NewSource(seed))
}

func NewSource(seed uint64) xrand.Source {
	src := &xrand.PCGSource{}
	src.Seed(seed)
	return src
}

// TimeSeed is used when the caller asked for a random seed (seed 0 in
// config).
func TimeSeed() uint64 {
	return uint64(time.Now().UnixNano())
}

// Int64 draws uniformly from [0, n); n must be positive.
func Int64(r *xrand.Rand, n int64) int64 {
	return int64(r.Uint64n(uint64(n)))
}
