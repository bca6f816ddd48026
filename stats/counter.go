package stats

import (
	"sync/atomic"
)

const STATS = true

// Tcounter is safe to read without the scheduler lock, which lets
// metrics scrape per-user aggregates while quanta are being charged.
type Tcounter = atomic.Int64

func Inc(c *Tcounter, v int64) {
	if STATS {
		c.Add(v)
	}
}

func Dec(c *Tcounter, v int64) {
	if STATS {
		c.Add(-v)
	}
}

func Max(max *Tcounter, v int64) {
	if STATS {
		for {
			old := max.Load()
			if old == 0 || v > old {
				if ok := max.CompareAndSwap(old, v); ok {
					return
				}
				// retry
			} else {
				return
			}
		}
	}
}

func Read(c *Tcounter) int64 {
	if STATS {
		return c.Load()
	}
	return 0
}
