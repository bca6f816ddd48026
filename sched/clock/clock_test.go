package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lottery/proc"
	"lottery/sched/clock"
)

func TestVirtualAdvance(t *testing.T) {
	vc := clock.NewVirtual()
	seen := make([]proc.Ttick, 0)
	err := vc.Advance(context.Background(), 3, func(now proc.Ttick) {
		seen = append(seen, now)
	})
	assert.Nil(t, err)
	assert.Equal(t, []proc.Ttick{1, 2, 3}, seen)
	vc.Advance(context.Background(), 2, func(now proc.Ttick) {})
	assert.Equal(t, proc.Ttick(5), vc.Now())
}

func TestVirtualCancel(t *testing.T) {
	vc := clock.NewVirtual()
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err := vc.Advance(ctx, 0, func(now proc.Ttick) {
		n++
		if n == 10 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, n)
	assert.Equal(t, proc.Ttick(10), vc.Now())
}

func TestTimerAdvance(t *testing.T) {
	tc := clock.NewTimer(time.Millisecond)
	n := 0
	start := time.Now()
	err := tc.Advance(context.Background(), 5, func(now proc.Ttick) {
		n++
	})
	assert.Nil(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, proc.Ttick(5), tc.Now())
	assert.True(t, time.Since(start) >= 5*time.Millisecond)
}

func TestTimerTimeout(t *testing.T) {
	tc := clock.NewTimer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := tc.Advance(ctx, 1, func(now proc.Ttick) {
		assert.Fail(t, "tick fired")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
