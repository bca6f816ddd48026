// Package lottery is the two-level lottery scheduler. At each quantum
// boundary it draws a user with probability proportional to the user's
// capped weight, then draws one of that user's runnable procs with
// probability proportional to the proc's own tickets.
//
// One lock guards the process table, the ledger, and the generator; it
// is held across charge, weigh, draw, and mark-running, and across
// snapshots, but never while the dispatched proc runs.
package lottery

import (
	"context"
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"
	xrand "golang.org/x/exp/rand"

	db "lottery/debug"
	"lottery/param"
	"lottery/proc"
	"lottery/sched/clock"
	"lottery/sched/ledger"
	"lottery/sched/ptable"
	"lottery/serr"
	"lottery/util/perf"
	"lottery/util/rand"
)

func init() {
	deadlock.Opts.Disable = !db.WillBePrinted(db.LOCKDEP)
}

type Stats struct {
	Quanta     proc.Ttick
	Idle       proc.Ttick
	Dispatches proc.Ttick
}

func (st Stats) String() string {
	return fmt.Sprintf("{quanta %v idle %v dispatches %v}", st.Quanta, st.Idle, st.Dispatches)
}

type Scheduler struct {
	mu         deadlock.Mutex
	config     *param.Config
	pt         *ptable.Table
	ledger     *ledger.Ledger
	rand       *xrand.Rand
	cur        int // slot dispatched for the current quantum
	curPid     proc.Tpid
	st         Stats
	dispatchFn func(proc.Tpid)
	metrics    *perf.Metrics
}

func NewScheduler(config *param.Config, opts ...SchedulerOpt) *Scheduler {
	sopts := &SchedulerOpts{}
	for _, o := range opts {
		o.Apply(sopts)
	}
	if sopts.Rand == nil {
		seed := config.Sched.SEED
		if seed == 0 {
			seed = rand.TimeSeed()
		}
		db.DPrintf(db.LOTTERY, "Seed %v", seed)
		sopts.Rand = rand.NewRand(seed)
	}
	return &Scheduler{
		config:     config,
		pt:         ptable.NewTable(config.Sched.NPROC),
		ledger:     ledger.NewLedger(config),
		rand:       sopts.Rand,
		cur:        proc.NO_SLOT,
		dispatchFn: sopts.DispatchFn,
		metrics:    sopts.Metrics,
	}
}

func (s *Scheduler) Config() *param.Config {
	return s.config
}

func (s *Scheduler) validUid(uid proc.Tuid) error {
	if !s.config.ValidUid(uid) {
		return serr.NewErr(serr.TErrInvalUid, uid)
	}
	return nil
}

// Register creates an EMBRYO entry for pid owned by uid.
func (s *Scheduler) Register(pid, ppid proc.Tpid, uid proc.Tuid) error {
	if err := s.validUid(uid); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.pt.RegisterL(pid, ppid, uid); err != nil {
		return err
	}
	s.ledger.UserL(uid)
	return nil
}

// Fork registers pid as a child of ppid. The child inherits its parent's
// uid and ticket count and is immediately RUNNABLE.
func (s *Scheduler) Fork(ppid, pid proc.Tpid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pi, ok := s.pt.LookupL(ppid)
	if !ok {
		return serr.NewErr(serr.TErrNotfound, ppid)
	}
	parent := s.pt.SlotL(pi)
	if parent.State == proc.ZOMBIE {
		return serr.NewErr(serr.TErrInval, fmt.Sprintf("fork from zombie %v", ppid))
	}
	if _, err := s.pt.RegisterL(pid, ppid, parent.Uid); err != nil {
		return err
	}
	if parent.Tickets > 0 {
		if _, err := s.ledger.SetTicketsL(s.pt, pid, parent.Tickets); err != nil {
			db.DFatalf("Inherit tickets %v from %v: %v", pid, ppid, err)
		}
	}
	if _, err := s.pt.MarkRunnableL(pid); err != nil {
		db.DFatalf("Fork %v runnable: %v", pid, err)
	}
	db.DPrintf(db.LOTTERY, "Fork %v -> %v %v tickets %d", ppid, pid, parent.Uid, parent.Tickets)
	return nil
}

// SetUid changes pid's owner. Ticks pid accumulated so far move with it
// to the new owner's aggregate.
func (s *Scheduler) SetUid(pid proc.Tpid, uid proc.Tuid) error {
	if err := s.validUid(uid); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, old, err := s.pt.SetUidL(pid, uid)
	if err != nil {
		return err
	}
	s.ledger.MoveL(old, uid, s.pt.SlotL(i).Ticks)
	db.DPrintf(db.LOTTERY, "SetUid %v %v -> %v", pid, old, uid)
	return nil
}

func (s *Scheduler) SetTickets(pid proc.Tpid, n proc.Ttickets) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.ledger.SetTicketsL(s.pt, pid, n)
	return err
}

func (s *Scheduler) MarkRunnable(pid proc.Tpid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.pt.MarkRunnableL(pid)
	return err
}

// MarkBlocked takes pid out of the lottery until MarkRunnable. If pid is
// running, it is still charged for the current quantum.
func (s *Scheduler) MarkBlocked(pid proc.Tpid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.pt.MarkBlockedL(pid)
	return err
}

// Exit turns pid into a ZOMBIE and hands its children to init. The
// slot, and its ticks, stay visible until the parent reaps it.
func (s *Scheduler) Exit(pid proc.Tpid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.pt.MarkZombieL(pid); err != nil {
		return err
	}
	if pid != proc.INITPID {
		s.pt.IterL(func(i int, sl *ptable.Slot) bool {
			if sl.Ppid == pid {
				s.pt.SetPpidL(i, proc.INITPID)
			}
			return true
		})
	}
	db.DPrintf(db.LOTTERY, "Exit %v", pid)
	return nil
}

// Retire frees a ZOMBIE's slot; its ticks leave the owner's aggregate.
func (s *Scheduler) Retire(pid proc.Tpid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retireL(pid)
}

func (s *Scheduler) retireL(pid proc.Tpid) error {
	old, err := s.pt.RetireL(pid)
	if err != nil {
		return err
	}
	s.ledger.DischargeL(old.Uid, old.Ticks)
	if s.curPid == pid {
		s.cur = proc.NO_SLOT
		s.curPid = proc.NOT_SET
	}
	return nil
}

// Reap retires one ZOMBIE child of ppid and returns its pid. It returns
// NOT_SET without error if ppid has children but none has exited, and
// TErrNotfound if ppid has no children.
func (s *Scheduler) Reap(ppid proc.Tpid) (proc.Tpid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nkids := 0
	zombie := proc.NOT_SET
	s.pt.IterL(func(i int, sl *ptable.Slot) bool {
		if sl.Ppid != ppid || sl.Pid == ppid {
			return true
		}
		nkids++
		if sl.State == proc.ZOMBIE {
			zombie = sl.Pid
			return false
		}
		return true
	})
	if nkids == 0 {
		return proc.NOT_SET, serr.NewErr(serr.TErrNotfound, fmt.Sprintf("children of %v", ppid))
	}
	if zombie == proc.NOT_SET {
		return proc.NOT_SET, nil
	}
	return zombie, s.retireL(zombie)
}

// Children returns ppid's live children in slot order.
func (s *Scheduler) Children(ppid proc.Tpid) []proc.Tpid {
	s.mu.Lock()
	defer s.mu.Unlock()

	kids := make([]proc.Tpid, 0)
	s.pt.IterL(func(i int, sl *ptable.Slot) bool {
		if sl.Ppid == ppid && sl.Pid != ppid {
			kids = append(kids, sl.Pid)
		}
		return true
	})
	return kids
}

func (s *Scheduler) Lookup(pid proc.Tpid) (ptable.Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.pt.LookupL(pid)
	if !ok {
		return ptable.Slot{}, false
	}
	return s.pt.SlotL(i), true
}

func (s *Scheduler) RawDemand(uid proc.Tuid) proc.Ttickets {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.RawDemandL(s.pt, uid)
}

func (s *Scheduler) CappedWeight(uid proc.Tuid) proc.Tweight {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.CappedWeightL(s.pt, uid)
}

// Weights returns the candidates the next draw would see.
func (s *Scheduler) Weights() []ledger.Weight {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.WeightsL(s.pt)
}

// UserTicks returns uid's aggregate tick count as tracked by the ledger.
func (s *Scheduler) UserTicks(uid proc.Tuid) proc.Ttick {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.TicksL(uid)
}

// Running returns the proc dispatched for the current quantum.
func (s *Scheduler) Running() (proc.Tpid, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.curPid, s.cur != proc.NO_SLOT
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st
}

// Snapshot copies every slot's in-use flag, owner, and ticks into dst.
func (s *Scheduler) Snapshot(dst *proc.Pstat) error {
	if !dst.Usable(s.config.Sched.NPROC) {
		return serr.NewErr(serr.TErrBadTarget, "pstat")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pt.SnapshotL(dst)
	return nil
}

// Audit checks that every user's aggregate equals the ticks of its live
// slots.
func (s *Scheduler) Audit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.auditL()
}

func (s *Scheduler) auditL() error {
	sum := make(map[proc.Tuid]proc.Ttick)
	s.pt.IterL(func(i int, sl *ptable.Slot) bool {
		sum[sl.Uid] += sl.Ticks
		return true
	})
	for _, u := range s.ledger.UsersL() {
		if sum[u.Uid()] != u.Ticks() {
			return serr.NewErr(serr.TErrInval, fmt.Sprintf("%v: slots %v ledger %v", u.Uid(), sum[u.Uid()], u.Ticks()))
		}
		delete(sum, u.Uid())
	}
	for uid, n := range sum {
		if n != 0 {
			return serr.NewErr(serr.TErrInval, fmt.Sprintf("%v: slots %v no ledger entry", uid, n))
		}
	}
	return nil
}

// Quantum runs one quantum boundary: charge whoever ran during the
// quantum that just ended, then draw and dispatch the next proc. It
// returns false if no user had weight and the quantum is idle.
func (s *Scheduler) Quantum() (proc.Tpid, bool) {
	start := time.Now()
	pid, ok, now := s.quantum()
	s.metrics.ObserveCritical(time.Since(start))
	perf.LogQuantumLatency("Quantum %v dispatched %v", now, start, pid, ok)
	if ok && s.dispatchFn != nil {
		s.dispatchFn(pid)
	}
	return pid, ok
}

func (s *Scheduler) quantum() (proc.Tpid, bool, proc.Ttick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.sanityCheckL()

	s.st.Quanta += 1
	s.chargeL()

	ws := s.ledger.WeightsL(s.pt)
	s.metrics.ResetWeights()
	for _, w := range ws {
		s.metrics.SetWeight(w.Uid, w.Demand, w.Weight)
	}
	if len(ws) == 0 {
		s.st.Idle += 1
		s.metrics.Idle()
		db.DPrintf(db.LOTTERY, "Quantum %v idle", s.st.Quanta)
		return proc.NOT_SET, false, s.st.Quanta
	}
	i := s.drawL(ws)
	s.pt.MarkRunningL(i)
	s.cur = i
	s.curPid = s.pt.SlotL(i).Pid
	s.st.Dispatches += 1
	s.metrics.Dispatch()
	db.DPrintf(db.LOTTERY, "Quantum %v dispatch %v", s.st.Quanta, s.curPid)
	return s.curPid, true, s.st.Quanta
}

func (s *Scheduler) sanityCheckL() {
	if !db.WillBePrinted(db.LOTTERY_ERR) {
		return
	}
	if err := s.auditL(); err != nil {
		db.DFatalf("Audit after quantum %v: %v", s.st.Quanta, err)
	}
}

// chargeL charges the quantum that just ended to the proc that ran in
// it, unless its slot has been retired since, and preempts it.
func (s *Scheduler) chargeL() {
	if s.cur == proc.NO_SLOT {
		return
	}
	i := s.cur
	s.cur = proc.NO_SLOT
	sl := s.pt.SlotL(i)
	if sl.Pid != s.curPid || sl.State == proc.UNUSED {
		return
	}
	s.pt.TickL(i)
	s.ledger.ChargeL(sl.Uid)
	s.metrics.Charge(sl.Uid)
	s.pt.PreemptL(i)
}

// drawL performs the two draws and returns the chosen slot.
func (s *Scheduler) drawL(ws []ledger.Weight) int {
	uws := make([]proc.Ttickets, len(ws))
	for i, w := range ws {
		uws[i] = w.Weight
	}
	ui, r1 := draw(s.rand, uws)
	if ui < 0 {
		db.DFatalf("User draw %d outside %v", r1, ws)
	}
	uid := ws[ui].Uid

	slots := make([]int, 0)
	tickets := make([]proc.Ttickets, 0)
	s.pt.IterL(func(i int, sl *ptable.Slot) bool {
		if sl.Uid == uid && sl.Eligible() {
			slots = append(slots, i)
			tickets = append(tickets, sl.Tickets)
		}
		return true
	})
	pi, r2 := draw(s.rand, tickets)
	if pi < 0 {
		db.DFatalf("Proc draw %d for %v outside %v", r2, uid, tickets)
	}
	db.DPrintf(db.DRAW, "r1 %d of %v -> %v; r2 %d of %v -> slot %d", r1, ws, uid, r2, tickets, slots[pi])
	return slots[pi]
}

// Run drives n quanta off clk, or runs until ctx is done if n is 0.
func (s *Scheduler) Run(ctx context.Context, clk clock.Clock, n proc.Ttick) error {
	db.DPrintf(db.LOTTERY, "Run %v quanta", n)
	return clk.Advance(ctx, n, func(now proc.Ttick) {
		s.Quantum()
	})
}

func (s *Scheduler) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fmt.Sprintf("{st %v cur %d %v pt %v}", s.st, s.cur, s.curPid, s.pt)
}
