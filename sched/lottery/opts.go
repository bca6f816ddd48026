package lottery

import (
	xrand "golang.org/x/exp/rand"

	"lottery/proc"
	"lottery/util/perf"
)

type SchedulerOpts struct {
	Rand       *xrand.Rand
	DispatchFn func(proc.Tpid)
	Metrics    *perf.Metrics
}

type SchedulerOpt interface {
	Apply(*SchedulerOpts)
}

type withRand struct {
	r *xrand.Rand
}

func (o withRand) Apply(opts *SchedulerOpts) {
	opts.Rand = o.r
}

// WithRand makes the scheduler draw from r. The scheduler only touches r
// while holding its lock.
func WithRand(r *xrand.Rand) SchedulerOpt {
	return &withRand{r: r}
}

type withDispatchFn struct {
	fn func(proc.Tpid)
}

func (o withDispatchFn) Apply(opts *SchedulerOpts) {
	opts.DispatchFn = o.fn
}

// WithDispatchFn installs the hand-off to the chosen proc. It is called
// once per dispatched quantum, without the scheduler lock held.
func WithDispatchFn(fn func(proc.Tpid)) SchedulerOpt {
	return &withDispatchFn{fn: fn}
}

type withMetrics struct {
	m *perf.Metrics
}

func (o withMetrics) Apply(opts *SchedulerOpts) {
	opts.Metrics = o.m
}

func WithMetrics(m *perf.Metrics) SchedulerOpt {
	return &withMetrics{m: m}
}
