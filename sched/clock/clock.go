// Package clock drives quantum boundaries: a Virtual clock for
// simulations and tests, and a Timer clock backed by a real ticker.
package clock

import (
	"context"
	"sync"
	"time"

	db "lottery/debug"
	"lottery/proc"
)

// A Clock calls fn at each of the next n quantum boundaries, or until
// ctx is done when n is 0.
type Clock interface {
	Advance(ctx context.Context, n proc.Ttick, fn func(now proc.Ttick)) error
	Now() proc.Ttick
}

// Virtual runs quanta back to back; time only moves when Advance is
// called.
type Virtual struct {
	mu  sync.Mutex
	now proc.Ttick
}

func NewVirtual() *Virtual {
	return &Virtual{}
}

func (vc *Virtual) Now() proc.Ttick {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.now
}

func (vc *Virtual) tick() proc.Ttick {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.now += 1
	return vc.now
}

func (vc *Virtual) Advance(ctx context.Context, n proc.Ttick, fn func(proc.Ttick)) error {
	for i := proc.Ttick(0); n == 0 || i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(vc.tick())
	}
	db.DPrintf(db.CLOCK, "Virtual advanced %v, now %v", n, vc.Now())
	return nil
}

// Timer fires one boundary per quantum of wall-clock time.
type Timer struct {
	mu      sync.Mutex
	quantum time.Duration
	now     proc.Ttick
}

func NewTimer(quantum time.Duration) *Timer {
	return &Timer{quantum: quantum}
}

func (tc *Timer) Quantum() time.Duration {
	return tc.quantum
}

func (tc *Timer) Now() proc.Ttick {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.now
}

func (tc *Timer) tick() proc.Ttick {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.now += 1
	return tc.now
}

func (tc *Timer) Advance(ctx context.Context, n proc.Ttick, fn func(proc.Ttick)) error {
	t := time.NewTicker(tc.quantum)
	defer t.Stop()

	start := time.Now()
	for i := proc.Ttick(0); n == 0 || i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			fn(tc.tick())
		}
	}
	db.DPrintf(db.CLOCK, "Timer advanced %v in %v, now %v", n, time.Since(start), tc.Now())
	return nil
}
