package proc

import (
	"fmt"
)

// Pstat is the getpinfo snapshot: one entry per process-table slot.
type Pstat struct {
	InUse []bool
	Uid   []Tuid
	Ticks []Ttick
}

func NewPstat(nproc int) *Pstat {
	return &Pstat{
		InUse: make([]bool, nproc),
		Uid:   make([]Tuid, nproc),
		Ticks: make([]Ttick, nproc),
	}
}

// Usable reports whether st can hold a snapshot of nproc slots.
func (st *Pstat) Usable(nproc int) bool {
	if st == nil {
		return false
	}
	return len(st.InUse) == nproc && len(st.Uid) == nproc && len(st.Ticks) == nproc
}

// UserTicks sums ticks of in-use slots by owner; owners outside [0, nuid)
// are ignored.
func (st *Pstat) UserTicks(nuid int) []Ttick {
	ticks := make([]Ttick, nuid)
	for i, inuse := range st.InUse {
		if !inuse {
			continue
		}
		if uid := st.Uid[i]; uid >= 0 && int(uid) < nuid {
			ticks[uid] += st.Ticks[i]
		}
	}
	return ticks
}

func (st *Pstat) String() string {
	s := "["
	for i, inuse := range st.InUse {
		if inuse {
			s += fmt.Sprintf("%d:{%v %v} ", i, st.Uid[i], st.Ticks[i])
		}
	}
	return s + "]"
}
