// Package ptable is the fixed-capacity process table. Entries are named
// by slot index; a slot is reused only after it returns to UNUSED.
//
// The table does no locking of its own: every method with an L suffix
// expects the caller to hold the scheduler lock.
package ptable

import (
	"fmt"

	db "lottery/debug"
	"lottery/proc"
	"lottery/serr"
	"lottery/util/freelist"
)

type Slot struct {
	Pid     proc.Tpid
	Ppid    proc.Tpid
	Uid     proc.Tuid
	Tickets proc.Ttickets
	Ticks   proc.Ttick
	State   proc.Tstate
}

func (s Slot) String() string {
	return fmt.Sprintf("{%v pp %v %v t %d %v %v}", s.Pid, s.Ppid, s.Uid, s.Tickets, s.Ticks, s.State)
}

// Eligible reports whether the slot counts towards its owner's demand.
func (s Slot) Eligible() bool {
	return s.State.IsSchedulable() && s.Tickets > 0
}

type Table struct {
	slots []Slot
	pids  map[proc.Tpid]int
	free  *freelist.FreeList
}

func NewTable(nproc int) *Table {
	pt := &Table{
		slots: make([]Slot, nproc),
		pids:  make(map[proc.Tpid]int, nproc),
		free:  freelist.NewFreeList(nproc),
	}
	for i := range pt.slots {
		pt.slots[i].Uid = proc.NO_UID
	}
	return pt
}

func (pt *Table) NProc() int {
	return len(pt.slots)
}

func (pt *Table) NFree() int {
	return pt.free.Len()
}

// SlotL returns a copy of slot i.
func (pt *Table) SlotL(i int) Slot {
	return pt.slots[i]
}

func (pt *Table) LookupL(pid proc.Tpid) (int, bool) {
	i, ok := pt.pids[pid]
	return i, ok
}

func (pt *Table) lookupL(pid proc.Tpid) (int, error) {
	i, ok := pt.pids[pid]
	if !ok {
		return proc.NO_SLOT, serr.NewErr(serr.TErrNotfound, pid)
	}
	return i, nil
}

// RegisterL allocates a slot for pid in EMBRYO with no tickets.
func (pt *Table) RegisterL(pid, ppid proc.Tpid, uid proc.Tuid) (int, error) {
	if pid == proc.NOT_SET {
		return proc.NO_SLOT, serr.NewErr(serr.TErrInval, pid)
	}
	if _, ok := pt.pids[pid]; ok {
		return proc.NO_SLOT, serr.NewErr(serr.TErrExists, pid)
	}
	i, ok := pt.free.Alloc()
	if !ok {
		db.DPrintf(db.PTABLE, "Register %v: table full (%d slots)", pid, len(pt.slots))
		return proc.NO_SLOT, serr.NewErr(serr.TErrCapacity, pid)
	}
	pt.slots[i] = Slot{
		Pid:   pid,
		Ppid:  ppid,
		Uid:   uid,
		State: proc.EMBRYO,
	}
	pt.pids[pid] = i
	db.DPrintf(db.PTABLE, "Register slot %d %v", i, &pt.slots[i])
	return i, nil
}

func (pt *Table) transitionL(pid proc.Tpid, to proc.Tstate, from ...proc.Tstate) (int, error) {
	i, err := pt.lookupL(pid)
	if err != nil {
		return i, err
	}
	s := &pt.slots[i]
	for _, st := range from {
		if s.State == st {
			db.DPrintf(db.PTABLE, "%v: %v -> %v", pid, s.State, to)
			s.State = to
			return i, nil
		}
	}
	return i, serr.NewErr(serr.TErrInval, fmt.Sprintf("%v %v -> %v", pid, s.State, to))
}

func (pt *Table) MarkRunnableL(pid proc.Tpid) (int, error) {
	return pt.transitionL(pid, proc.RUNNABLE, proc.EMBRYO, proc.SLEEPING, proc.RUNNING, proc.RUNNABLE)
}

func (pt *Table) MarkBlockedL(pid proc.Tpid) (int, error) {
	return pt.transitionL(pid, proc.SLEEPING, proc.RUNNABLE, proc.RUNNING, proc.SLEEPING)
}

// MarkRunningL dispatches slot i; only a RUNNABLE slot can be dispatched.
func (pt *Table) MarkRunningL(i int) {
	s := &pt.slots[i]
	if s.State != proc.RUNNABLE {
		db.DFatalf("Dispatch slot %d in state %v", i, s.State)
	}
	s.State = proc.RUNNING
}

// PreemptL moves slot i back to RUNNABLE if it is still RUNNING.
func (pt *Table) PreemptL(i int) {
	if s := &pt.slots[i]; s.State == proc.RUNNING {
		s.State = proc.RUNNABLE
	}
}

// MarkZombieL is exit: the slot keeps its uid and ticks until RetireL.
func (pt *Table) MarkZombieL(pid proc.Tpid) (int, error) {
	return pt.transitionL(pid, proc.ZOMBIE, proc.EMBRYO, proc.SLEEPING, proc.RUNNABLE, proc.RUNNING)
}

// RetireL frees a ZOMBIE's slot, zeroing its tickets and ticks, and
// returns the slot as it was just before.
func (pt *Table) RetireL(pid proc.Tpid) (Slot, error) {
	i, err := pt.lookupL(pid)
	if err != nil {
		return Slot{}, err
	}
	old := pt.slots[i]
	if old.State != proc.ZOMBIE {
		return old, serr.NewErr(serr.TErrInval, fmt.Sprintf("retire %v in %v", pid, old.State))
	}
	pt.slots[i] = Slot{State: proc.UNUSED, Uid: proc.NO_UID}
	delete(pt.pids, pid)
	pt.free.Free(i)
	db.DPrintf(db.PTABLE, "Retire slot %d %v", i, &old)
	return old, nil
}

func (pt *Table) SetTicketsL(pid proc.Tpid, n proc.Ttickets) (int, error) {
	i, err := pt.lookupL(pid)
	if err != nil {
		return i, err
	}
	pt.slots[i].Tickets = n
	return i, nil
}

// SetUidL changes pid's owner and returns the previous one.
func (pt *Table) SetUidL(pid proc.Tpid, uid proc.Tuid) (int, proc.Tuid, error) {
	i, err := pt.lookupL(pid)
	if err != nil {
		return i, proc.NO_UID, err
	}
	old := pt.slots[i].Uid
	pt.slots[i].Uid = uid
	return i, old, nil
}

func (pt *Table) SetPpidL(i int, ppid proc.Tpid) {
	pt.slots[i].Ppid = ppid
}

// TickL charges one quantum to slot i.
func (pt *Table) TickL(i int) {
	pt.slots[i].Ticks += 1
}

// IterL calls f for every slot not UNUSED, in slot order, until f
// returns false.
func (pt *Table) IterL(f func(i int, s *Slot) bool) {
	for i := range pt.slots {
		if pt.slots[i].State == proc.UNUSED {
			continue
		}
		if !f(i, &pt.slots[i]) {
			return
		}
	}
}

// SnapshotL copies the table into dst, which must be sized to the table.
func (pt *Table) SnapshotL(dst *proc.Pstat) {
	for i := range pt.slots {
		s := &pt.slots[i]
		dst.InUse[i] = s.State.InUse()
		dst.Uid[i] = s.Uid
		dst.Ticks[i] = s.Ticks
	}
}

func (pt *Table) String() string {
	str := "["
	pt.IterL(func(i int, s *Slot) bool {
		str += fmt.Sprintf("%d:%v ", i, s)
		return true
	})
	return str + "]"
}
