// Package ledger keeps per-user ticket bookkeeping: each user's
// currency cap, its demand, and its aggregate tick count.
//
// Capping happens when weights are computed for a draw, not when
// tickets are requested: a user may hand out as many tickets as it likes
// among its own procs, but its influence in the inter-user draw never
// exceeds its cap.
package ledger

import (
	"fmt"
	"math"

	"github.com/google/btree"

	db "lottery/debug"
	"lottery/param"
	"lottery/proc"
	"lottery/sched/ptable"
	"lottery/serr"
	"lottery/stats"
)

const BTREE_DEGREE = 8

type User struct {
	uid   proc.Tuid
	cap   proc.Ttickets
	ticks stats.Tcounter
}

func (u *User) Uid() proc.Tuid {
	return u.uid
}

func (u *User) Cap() proc.Ttickets {
	return u.cap
}

func (u *User) Ticks() proc.Ttick {
	return proc.Ttick(stats.Read(&u.ticks))
}

func (u *User) String() string {
	return fmt.Sprintf("{%v cap %d ticks %d}", u.uid, u.cap, stats.Read(&u.ticks))
}

// Weight is a candidate in the inter-user draw.
type Weight struct {
	Uid    proc.Tuid
	Demand proc.Ttickets
	Weight proc.Tweight
}

type Ledger struct {
	config *param.Config
	users  *btree.BTreeG[*User]
}

func NewLedger(config *param.Config) *Ledger {
	return &Ledger{
		config: config,
		users: btree.NewG[*User](BTREE_DEGREE, func(a, b *User) bool {
			return a.uid < b.uid
		}),
	}
}

// UserL returns uid's entry, creating it on first use.
func (l *Ledger) UserL(uid proc.Tuid) *User {
	if u, ok := l.users.Get(&User{uid: uid}); ok {
		return u
	}
	u := &User{uid: uid, cap: l.config.Cap(uid)}
	l.users.ReplaceOrInsert(u)
	db.DPrintf(db.LEDGER, "New user %v", u)
	return u
}

// UsersL returns the known users in ascending uid order.
func (l *Ledger) UsersL() []*User {
	us := make([]*User, 0, l.users.Len())
	l.users.Ascend(func(u *User) bool {
		us = append(us, u)
		return true
	})
	return us
}

func (l *Ledger) Cap(uid proc.Tuid) proc.Ttickets {
	return l.config.Cap(uid)
}

// SetTicketsL sets pid's ticket count, which must be in [1, MAX_TICKETS].
// The count is not checked against the owner's cap.
func (l *Ledger) SetTicketsL(pt *ptable.Table, pid proc.Tpid, n proc.Ttickets) (int, error) {
	if n <= 0 || n > proc.MAX_TICKETS {
		return proc.NO_SLOT, serr.NewErr(serr.TErrInvalTickets, n)
	}
	i, err := pt.SetTicketsL(pid, n)
	if err != nil {
		return i, err
	}
	db.DPrintf(db.LEDGER, "SetTickets %v %d", pid, n)
	return i, nil
}

// RawDemandL sums the tickets of uid's schedulable procs.
func (l *Ledger) RawDemandL(pt *ptable.Table, uid proc.Tuid) proc.Ttickets {
	d := proc.Ttickets(0)
	pt.IterL(func(i int, s *ptable.Slot) bool {
		if s.Uid == uid && s.Eligible() {
			d = add(d, s.Tickets)
		}
		return true
	})
	return d
}

func (l *Ledger) CappedWeightL(pt *ptable.Table, uid proc.Tuid) proc.Tweight {
	return capped(l.RawDemandL(pt, uid), l.Cap(uid))
}

// add saturates instead of wrapping.
func add(a, b proc.Ttickets) proc.Ttickets {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func capped(demand, c proc.Ttickets) proc.Tweight {
	if demand > c {
		return c
	}
	return demand
}

// WeightsL computes, in one pass over the table, the capped weight of
// every user with demand, in ascending uid order. Users with zero weight
// are left out.
func (l *Ledger) WeightsL(pt *ptable.Table) []Weight {
	demand := make(map[proc.Tuid]proc.Ttickets)
	pt.IterL(func(i int, s *ptable.Slot) bool {
		if s.Eligible() {
			demand[s.Uid] = add(demand[s.Uid], s.Tickets)
		}
		return true
	})
	ws := make([]Weight, 0, len(demand))
	if len(demand) == 0 {
		return ws
	}
	for uid := range demand {
		l.UserL(uid)
	}
	l.users.Ascend(func(u *User) bool {
		if d := demand[u.uid]; d > 0 {
			ws = append(ws, Weight{Uid: u.uid, Demand: d, Weight: capped(d, u.cap)})
		}
		return true
	})
	return ws
}

// ChargeL adds one quantum to uid's aggregate.
func (l *Ledger) ChargeL(uid proc.Tuid) {
	stats.Inc(&l.UserL(uid).ticks, 1)
}

// DischargeL removes a retired slot's ticks from uid's aggregate.
func (l *Ledger) DischargeL(uid proc.Tuid, n proc.Ttick) {
	if n == 0 {
		return
	}
	u := l.UserL(uid)
	stats.Dec(&u.ticks, int64(n))
	if stats.Read(&u.ticks) < 0 {
		db.DFatalf("Negative aggregate %v after discharging %d", u, n)
	}
}

// MoveL transfers a proc's ticks between owners when it changes uid.
func (l *Ledger) MoveL(from, to proc.Tuid, n proc.Ttick) {
	if from == to {
		return
	}
	if from != proc.NO_UID {
		l.DischargeL(from, n)
	}
	stats.Inc(&l.UserL(to).ticks, int64(n))
}

// TicksL returns uid's aggregate.
func (l *Ledger) TicksL(uid proc.Tuid) proc.Ttick {
	if u, ok := l.users.Get(&User{uid: uid}); ok {
		return u.Ticks()
	}
	return 0
}
