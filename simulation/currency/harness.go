// Package currency runs the currency-cap experiment: init forks one
// manager per user, each manager takes its user's uid and tickets and
// forks children that inherit both, and after a warm-up the harness
// measures how the CPU splits between users over a window of quanta.
package currency

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	db "lottery/debug"
	"lottery/kernel"
	"lottery/proc"
	"lottery/sched/clock"
	"lottery/simulation/workload"
	"lottery/util/tracing"
)

type manager struct {
	user workload.User
	pid  proc.Tpid
	kids []proc.Tpid
}

type Harness struct {
	k        *kernel.Kernel
	wl       *workload.Workload
	clk      clock.Clock
	tracer   *tracing.Tracer
	managers []*manager
}

// NewHarness runs wl on k, which must not have been initialized yet.
// tracer may be nil.
func NewHarness(k *kernel.Kernel, wl *workload.Workload, clk clock.Clock, tracer *tracing.Tracer) *Harness {
	return &Harness{
		k:      k,
		wl:     wl,
		clk:    clk,
		tracer: tracer,
	}
}

func (h *Harness) Run(ctx context.Context) (*Report, error) {
	if err := h.wl.Validate(h.k.Config()); err != nil {
		return nil, err
	}
	ctx, span := h.tracer.StartContextSpan(ctx, "currency", attribute.Int("users", len(h.wl.Users)))
	defer span.End()

	if err := h.setup(ctx); err != nil {
		return nil, h.abort(ctx, err)
	}
	rep, err := h.measure(ctx)
	if err != nil {
		return nil, h.abort(ctx, err)
	}
	if err := h.cleanup(ctx); err != nil {
		return nil, err
	}
	return rep, nil
}

// abort tears down whatever setup built and returns err.
func (h *Harness) abort(ctx context.Context, err error) error {
	if cerr := h.cleanup(ctx); cerr != nil {
		db.DPrintf(db.SIM_CURRENCY, "Cleanup after %v: %v", err, cerr)
	}
	return err
}

func (h *Harness) setup(ctx context.Context) error {
	_, span := h.tracer.StartContextSpan(ctx, "setup")
	defer span.End()

	if _, err := h.k.Init(); err != nil {
		return errors.Wrapf(err, "init")
	}
	for _, u := range h.wl.Users {
		if err := h.spawn(u); err != nil {
			return err
		}
	}
	// Init only waits from here on.
	if err := h.k.Sleep(proc.INITPID); err != nil {
		return errors.Wrapf(err, "sleep init")
	}
	db.DPrintf(db.SIM_CURRENCY, "Setup done: %d managers %d procs", len(h.managers), h.wl.NProc())
	return nil
}

// spawn forks u's manager off init, moves it to u's uid and tickets, and
// forks u's children off the manager. Each proc is recorded as soon as
// it exists so cleanup can find it if a later step fails.
func (h *Harness) spawn(u workload.User) error {
	pid, err := h.k.Fork(proc.INITPID)
	if err != nil {
		return errors.Wrapf(err, "fork manager %v", u.Uid)
	}
	m := &manager{user: u, pid: pid, kids: make([]proc.Tpid, 0, u.Children)}
	h.managers = append(h.managers, m)
	if h.k.Setuid(pid, u.Uid) < 0 {
		return errors.Errorf("setuid(%v, %v) failed", pid, u.Uid)
	}
	if h.k.Settickets(pid, u.Tickets) < 0 {
		return errors.Errorf("manager settickets(%v, %d) failed for %v", pid, u.Tickets, u.Uid)
	}
	for i := 0; i < u.Children; i++ {
		kid, err := h.k.Fork(pid)
		if err != nil {
			return errors.Wrapf(err, "fork child %d of %v", i, u.Uid)
		}
		m.kids = append(m.kids, kid)
	}
	db.DPrintf(db.SIM_CURRENCY, "Manager %v for %v kids %v", pid, u, m.kids)
	return nil
}

func (h *Harness) advance(ctx context.Context, name string, n proc.Ttick) error {
	ctx, span := h.tracer.StartContextSpan(ctx, name, attribute.Int64("quanta", int64(n)))
	defer span.End()

	if err := h.k.Sched().Run(ctx, h.clk, n); err != nil {
		return errors.Wrapf(err, "%v", name)
	}
	return nil
}

func (h *Harness) userTicks() ([]proc.Ttick, error) {
	nuid := h.k.Config().Sched.NUID
	st := proc.NewPstat(h.k.Config().Sched.NPROC)
	if h.k.Getpinfo(st) < 0 {
		return nil, errors.Errorf("getpinfo failed")
	}
	return st.UserTicks(nuid), nil
}

func (h *Harness) measure(ctx context.Context) (*Report, error) {
	if err := h.advance(ctx, "warmup", h.wl.Warmup); err != nil {
		return nil, err
	}
	start, err := h.userTicks()
	if err != nil {
		return nil, err
	}
	st0 := h.k.Sched().Stats()
	if err := h.advance(ctx, "window", h.wl.Window); err != nil {
		return nil, err
	}
	end, err := h.userTicks()
	if err != nil {
		return nil, err
	}
	st1 := h.k.Sched().Stats()

	delta := make([]proc.Ttick, len(end))
	for i := range end {
		delta[i] = end[i] - start[i]
	}
	rep := newReport(h.k.Config(), h.wl, delta)
	rep.Quanta = st1.Quanta - st0.Quanta
	rep.Idle = st1.Idle - st0.Idle
	db.DPrintf(db.SIM_CURRENCY, "Report %v", rep)
	return rep, nil
}

// cleanup kills every child and manager and reaps them.
func (h *Harness) cleanup(ctx context.Context) error {
	_, span := h.tracer.StartContextSpan(ctx, "cleanup")
	defer span.End()

	for _, m := range h.managers {
		for _, kid := range m.kids {
			if err := h.k.Kill(kid); err != nil {
				return errors.Wrapf(err, "kill %v", kid)
			}
		}
		if err := h.reap(m.pid, len(m.kids)); err != nil {
			return err
		}
		if err := h.k.Kill(m.pid); err != nil {
			return errors.Wrapf(err, "kill %v", m.pid)
		}
	}
	if err := h.reap(proc.INITPID, len(h.managers)); err != nil {
		return err
	}
	h.managers = nil
	return h.k.Sched().Audit()
}

func (h *Harness) reap(ppid proc.Tpid, n int) error {
	for i := 0; i < n; i++ {
		pid, err := h.k.Wait(ppid)
		if err != nil {
			return errors.Wrapf(err, "wait %v", ppid)
		}
		if pid == proc.NOT_SET {
			return errors.Errorf("wait %v: %d children still running", ppid, n-i)
		}
	}
	return nil
}
