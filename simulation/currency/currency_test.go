package currency_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	db "lottery/debug"
	"lottery/kernel"
	"lottery/param"
	"lottery/proc"
	"lottery/sched/clock"
	"lottery/sched/lottery"
	"lottery/serr"
	"lottery/simulation/currency"
	"lottery/simulation/workload"
	"lottery/util/perf"
	"lottery/util/rand"
	"lottery/util/tracing"
)

const (
	SEED = 17
	TOL  = 0.1
)

func newKernel(opts ...lottery.SchedulerOpt) *kernel.Kernel {
	opts = append(opts, lottery.WithRand(rand.NewRand(SEED)))
	return kernel.NewKernel(param.Default(), opts...)
}

func nInUse(t *testing.T, k *kernel.Kernel) int {
	st := proc.NewPstat(proc.NPROC)
	assert.Equal(t, 0, k.Getpinfo(st))
	n := 0
	for _, inuse := range st.InUse {
		if inuse {
			n++
		}
	}
	return n
}

func TestCompile(t *testing.T) {
}

func TestCappedShares(t *testing.T) {
	wl := workload.Default()
	wl.Window = 20000
	k := newKernel()
	h := currency.NewHarness(k, wl, clock.NewVirtual(), nil)
	rep, err := h.Run(context.Background())
	assert.Nil(t, err)
	db.DPrintf(db.TEST, "%v", rep)

	assert.Equal(t, 3, len(rep.Rows))
	assert.Equal(t, proc.Tweight(200), rep.Rows[0].Eff)
	assert.Equal(t, proc.Tweight(300), rep.Rows[1].Eff)
	assert.Equal(t, proc.Tweight(300), rep.Rows[2].Eff)
	assert.InDelta(t, 0.25, rep.Rows[0].Expected, 1e-9)
	assert.InDelta(t, 0.375, rep.Rows[1].Expected, 1e-9)
	assert.InDelta(t, 0.375, rep.Rows[2].Expected, 1e-9)
	assert.Nil(t, rep.Check(TOL))

	// Init sleeps through the window and nobody else runs.
	assert.Equal(t, proc.Ttick(0), rep.Other)
	assert.Equal(t, proc.Ttick(20000), rep.Quanta)
	assert.Equal(t, proc.Ttick(0), rep.Idle)
	assert.Equal(t, proc.Ttick(20000), rep.Total)
	assert.NotEmpty(t, rep.Id)
}

func TestUncappedShares(t *testing.T) {
	wl := &workload.Workload{
		Users: []workload.User{
			{Uid: 4, Tickets: 50, Children: 1},
			{Uid: 6, Tickets: 20, Children: 4},
		},
		Warmup: 100,
		Window: 20000,
	}
	k := newKernel()
	rep, err := currency.NewHarness(k, wl, clock.NewVirtual(), nil).Run(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, proc.Tweight(100), rep.Rows[0].Eff)
	assert.Equal(t, proc.Tweight(100), rep.Rows[1].Eff)
	assert.Nil(t, rep.Check(TOL))
}

func TestCleanup(t *testing.T) {
	wl := workload.Default()
	wl.Warmup = 10
	wl.Window = 50
	k := newKernel()
	_, err := currency.NewHarness(k, wl, clock.NewVirtual(), nil).Run(context.Background())
	assert.Nil(t, err)

	// Only init is left.
	assert.Equal(t, 1, nInUse(t, k))
	assert.Nil(t, k.Sched().Audit())
	assert.Equal(t, []proc.Tpid{}, k.Sched().Children(proc.INITPID))
}

func TestInvalidWorkload(t *testing.T) {
	wl := &workload.Workload{Users: []workload.User{{Uid: 42, Tickets: 1}}}
	_, err := currency.NewHarness(newKernel(), wl, clock.NewVirtual(), nil).Run(context.Background())
	assert.NotNil(t, err)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	k := newKernel()
	_, err := currency.NewHarness(k, workload.Default(), clock.NewVirtual(), nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The managers and children are gone even though the run failed.
	assert.Equal(t, 1, nInUse(t, k))
	assert.Nil(t, k.Sched().Audit())
	assert.Equal(t, []proc.Tpid{}, k.Sched().Children(proc.INITPID))
}

func TestSetupFailsMidway(t *testing.T) {
	k := newKernel()
	// Leave room for init and 10 more procs; the default workload needs 22.
	nfill := proc.NPROC - 11
	for i := 0; i < nfill; i++ {
		assert.Nil(t, k.Sched().Register(proc.Tpid(10000+i), proc.NOT_SET, 0))
	}
	_, err := currency.NewHarness(k, workload.Default(), clock.NewVirtual(), nil).Run(context.Background())
	assert.True(t, serr.IsErrCode(err, serr.TErrCapacity), "err %v", err)

	assert.Equal(t, nfill+1, nInUse(t, k))
	assert.Nil(t, k.Sched().Audit())
	assert.Equal(t, []proc.Tpid{}, k.Sched().Children(proc.INITPID))
}

func TestTracedWithMetrics(t *testing.T) {
	var buf bytes.Buffer
	tr, err := tracing.InitWriter("currency-test", &buf)
	assert.Nil(t, err)
	m := perf.NewMetrics()

	wl := workload.Default()
	wl.Warmup = 10
	wl.Window = 100
	k := newKernel(lottery.WithMetrics(m))
	_, err = currency.NewHarness(k, wl, clock.NewVirtual(), tr).Run(context.Background())
	assert.Nil(t, err)
	tr.Flush()
	assert.Nil(t, tr.Shutdown())

	for _, name := range []string{"currency", "setup", "warmup", "window", "cleanup"} {
		assert.Contains(t, buf.String(), `"Name":"`+name+`"`)
	}
}

func TestCheck(t *testing.T) {
	rep := &currency.Report{Id: "x"}
	assert.NotNil(t, rep.Check(TOL))

	rep = &currency.Report{
		Id:    "x",
		Total: 100,
		Rows: []currency.Row{
			{Uid: 1, Expected: 0.5, Actual: 0.52, RelErr: 0.04},
			{Uid: 2, Expected: 0.5, Actual: 0.48, RelErr: 0.04},
		},
	}
	assert.Nil(t, rep.Check(TOL))
	rep.Rows[1].RelErr = 0.2
	err := rep.Check(TOL)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "uid2")
}
