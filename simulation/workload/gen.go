package workload

import (
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	db "lottery/debug"
	"lottery/param"
	"lottery/proc"
)

// Generate makes a random workload for users 1..nuser (clamped to the
// valid uids), with each user's child count drawn from a Poisson
// distribution with mean lambda. Child counts are trimmed from the last
// user backwards until the workload fits the process table.
func Generate(config *param.Config, nuser int, lambda float64, src xrand.Source) *Workload {
	if nuser > config.Sched.NUID-1 {
		nuser = config.Sched.NUID - 1
	}
	poisson := distuv.Poisson{Lambda: lambda, Src: src}
	wl := &Workload{
		Users:  make([]User, 0, nuser),
		Warmup: WARMUP,
		Window: WINDOW,
	}
	for i := 1; i <= nuser; i++ {
		wl.Users = append(wl.Users, User{
			Uid:      proc.Tuid(i),
			Tickets:  TICKETS,
			Children: int(poisson.Rand()),
		})
	}
	for i := len(wl.Users) - 1; i >= 0 && wl.NProc() > config.Sched.NPROC-1; {
		if wl.Users[i].Children == 0 {
			i--
			continue
		}
		wl.Users[i].Children--
	}
	db.DPrintf(db.SIM_WORKLOAD, "Generate %d users lambda %v: %v", nuser, lambda, wl)
	return wl
}
