package lottery

import (
	"math"

	xrand "golang.org/x/exp/rand"

	"lottery/proc"
	"lottery/util/rand"
)

// pick walks the cumulative weights and returns the index whose
// half-open interval [low, low+ws[i]) contains r. Zero weights have
// empty intervals and are never picked. Returns -1 if r is out of range.
func pick(ws []proc.Ttickets, r int64) int {
	if r < 0 {
		return -1
	}
	for i, w := range ws {
		if r < int64(w) {
			return i
		}
		r -= int64(w)
	}
	return -1
}

// total saturates at math.MaxInt64.
func total(ws []proc.Ttickets) int64 {
	t := int64(0)
	for _, w := range ws {
		if int64(w) > math.MaxInt64-t {
			return math.MaxInt64
		}
		t += int64(w)
	}
	return t
}

// draw picks an index with probability proportional to its weight.
// The caller guarantees a positive total.
func draw(r *xrand.Rand, ws []proc.Ttickets) (int, int64) {
	v := rand.Int64(r, total(ws))
	return pick(ws, v), v
}
