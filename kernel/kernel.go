// Package kernel is the syscall surface over the lottery scheduler:
// setuid, settickets, and getpinfo in their int-returning form, plus the
// process lifecycle calls (init, fork, sleep, wakeup, kill, wait) that
// the harness uses to build its process tree.
package kernel

import (
	"sync/atomic"

	db "lottery/debug"
	"lottery/param"
	"lottery/proc"
	"lottery/sched/lottery"
	"lottery/serr"
)

type Kernel struct {
	config  *param.Config
	sched   *lottery.Scheduler
	nextpid atomic.Int64
}

func NewKernel(config *param.Config, opts ...lottery.SchedulerOpt) *Kernel {
	k := &Kernel{
		config: config,
		sched:  lottery.NewScheduler(config, opts...),
	}
	k.nextpid.Store(int64(proc.INITPID))
	return k
}

func (k *Kernel) Sched() *lottery.Scheduler {
	return k.sched
}

func (k *Kernel) Config() *param.Config {
	return k.config
}

func (k *Kernel) allocPid() proc.Tpid {
	return proc.Tpid(k.nextpid.Add(1))
}

// Init creates the first process: uid 0, holding the full user currency,
// RUNNABLE.
func (k *Kernel) Init() (proc.Tpid, error) {
	if err := k.sched.Register(proc.INITPID, proc.NOT_SET, 0); err != nil {
		return proc.NOT_SET, err
	}
	if err := k.sched.SetTickets(proc.INITPID, k.config.Currency.USER_CURRENCY); err != nil {
		return proc.NOT_SET, err
	}
	if err := k.sched.MarkRunnable(proc.INITPID); err != nil {
		return proc.NOT_SET, err
	}
	db.DPrintf(db.KERNEL, "Init %v", proc.INITPID)
	return proc.INITPID, nil
}

// Fork creates a child of ppid with its parent's uid and tickets.
func (k *Kernel) Fork(ppid proc.Tpid) (proc.Tpid, error) {
	pid := k.allocPid()
	if err := k.sched.Fork(ppid, pid); err != nil {
		db.DPrintf(db.KERNEL_ERR, "Fork %v: %v", ppid, err)
		return proc.NOT_SET, err
	}
	db.DPrintf(db.KERNEL, "Fork %v -> %v", ppid, pid)
	return pid, nil
}

func (k *Kernel) Sleep(pid proc.Tpid) error {
	return k.sched.MarkBlocked(pid)
}

func (k *Kernel) Wakeup(pid proc.Tpid) error {
	return k.sched.MarkRunnable(pid)
}

// Kill makes pid a zombie; init adopts its children.
func (k *Kernel) Kill(pid proc.Tpid) error {
	if pid == proc.INITPID {
		return serr.NewErr(serr.TErrInval, "kill init")
	}
	return k.sched.Exit(pid)
}

// Wait reaps one exited child of ppid. It does not block: if ppid's
// children are all alive, it returns NOT_SET and no error.
func (k *Kernel) Wait(ppid proc.Tpid) (proc.Tpid, error) {
	pid, err := k.sched.Reap(ppid)
	if err != nil {
		return pid, err
	}
	if pid != proc.NOT_SET {
		db.DPrintf(db.KERNEL, "Wait %v reaped %v", ppid, pid)
	}
	return pid, nil
}

func ret(op string, err error) int {
	if err != nil {
		db.DPrintf(db.KERNEL_ERR, "%v: %v", op, err)
		return -1
	}
	return 0
}

// Setuid returns -1 if uid is outside [0, NUID) or pid is unknown.
func (k *Kernel) Setuid(pid proc.Tpid, uid proc.Tuid) int {
	return ret("setuid", k.sched.SetUid(pid, uid))
}

// Settickets returns -1 if n is not positive or pid is unknown. n is not
// checked against the caller's currency cap.
func (k *Kernel) Settickets(pid proc.Tpid, n proc.Ttickets) int {
	return ret("settickets", k.sched.SetTickets(pid, n))
}

// Getpinfo returns -1 if dst cannot hold a snapshot of the table.
func (k *Kernel) Getpinfo(dst *proc.Pstat) int {
	return ret("getpinfo", k.sched.Snapshot(dst))
}
