package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"lottery/kernel"
	"lottery/param"
	"lottery/proc"
	"lottery/sched/clock"
	"lottery/sched/lottery"
	"lottery/serr"
	"lottery/util/rand"
)

func newKernel(t *testing.T) *kernel.Kernel {
	k := kernel.NewKernel(param.Default(), lottery.WithRand(rand.NewRand(42)))
	pid, err := k.Init()
	assert.Nil(t, err)
	assert.Equal(t, proc.INITPID, pid)
	return k
}

func TestCompile(t *testing.T) {
}

func TestSyscallReturns(t *testing.T) {
	k := newKernel(t)
	pid, err := k.Fork(proc.INITPID)
	assert.Nil(t, err)

	assert.Equal(t, 0, k.Setuid(pid, 3))
	assert.Equal(t, -1, k.Setuid(pid, proc.NUID))
	assert.Equal(t, -1, k.Setuid(pid, -1))
	assert.Equal(t, -1, k.Setuid(999, 1))

	assert.Equal(t, 0, k.Settickets(pid, 10))
	assert.Equal(t, -1, k.Settickets(pid, 0))
	assert.Equal(t, -1, k.Settickets(pid, -3))

	assert.Equal(t, -1, k.Getpinfo(nil))
	assert.Equal(t, -1, k.Getpinfo(&proc.Pstat{}))
	st := proc.NewPstat(proc.NPROC)
	assert.Equal(t, 0, k.Getpinfo(st))
	assert.True(t, st.InUse[0])
	assert.Equal(t, proc.Tuid(0), st.Uid[0])
	assert.True(t, st.InUse[1])
	assert.Equal(t, proc.Tuid(3), st.Uid[1])
}

func TestForkInheritsInitCurrency(t *testing.T) {
	k := newKernel(t)
	pid, err := k.Fork(proc.INITPID)
	assert.Nil(t, err)
	sl, ok := k.Sched().Lookup(pid)
	assert.True(t, ok)
	assert.Equal(t, proc.Tuid(0), sl.Uid)
	assert.Equal(t, proc.USER_CURRENCY, sl.Tickets)
	assert.Equal(t, proc.RUNNABLE, sl.State)

	_, err = k.Fork(12345)
	assert.True(t, serr.IsErrCode(err, serr.TErrNotfound))
}

func TestSleepWakeup(t *testing.T) {
	k := newKernel(t)
	assert.Nil(t, k.Sleep(proc.INITPID))
	pid, ok := k.Sched().Quantum()
	assert.False(t, ok)
	assert.Equal(t, proc.NOT_SET, pid)
	assert.Nil(t, k.Wakeup(proc.INITPID))
	pid, ok = k.Sched().Quantum()
	assert.True(t, ok)
	assert.Equal(t, proc.INITPID, pid)
}

func TestKillWait(t *testing.T) {
	k := newKernel(t)
	mgr, err := k.Fork(proc.INITPID)
	assert.Nil(t, err)
	kid, err := k.Fork(mgr)
	assert.Nil(t, err)
	assert.Nil(t, k.Sched().Run(context.Background(), clock.NewVirtual(), 100))

	pid, err := k.Wait(mgr)
	assert.Nil(t, err)
	assert.Equal(t, proc.NOT_SET, pid)

	assert.Nil(t, k.Kill(kid))
	pid, err = k.Wait(mgr)
	assert.Nil(t, err)
	assert.Equal(t, kid, pid)
	_, err = k.Wait(mgr)
	assert.True(t, serr.IsErrCode(err, serr.TErrNotfound))

	assert.Nil(t, k.Kill(mgr))
	pid, err = k.Wait(proc.INITPID)
	assert.Nil(t, err)
	assert.Equal(t, mgr, pid)
	assert.Nil(t, k.Sched().Audit())

	err = k.Kill(proc.INITPID)
	assert.True(t, serr.IsErrCode(err, serr.TErrInval))
}

func TestOrphansAdoptedByInit(t *testing.T) {
	k := newKernel(t)
	mgr, _ := k.Fork(proc.INITPID)
	kid, _ := k.Fork(mgr)
	assert.Nil(t, k.Kill(mgr))
	assert.Equal(t, []proc.Tpid{mgr, kid}, k.Sched().Children(proc.INITPID))
	assert.Nil(t, k.Kill(kid))
	n := 0
	for {
		pid, err := k.Wait(proc.INITPID)
		if err != nil || pid == proc.NOT_SET {
			break
		}
		n++
	}
	assert.Equal(t, 2, n)
}
