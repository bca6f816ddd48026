package currency

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/thanhpk/randstr"

	db "lottery/debug"
	"lottery/param"
	"lottery/proc"
	"lottery/simulation/workload"
)

type Row struct {
	Uid      proc.Tuid
	Children int
	Demand   proc.Ttickets
	Cap      proc.Ttickets
	Eff      proc.Tweight
	Ticks    proc.Ttick
	Expected float64
	Actual   float64
	RelErr   float64
}

func (r *Row) String() string {
	return fmt.Sprintf("%v (demand %d cap %d eff %d) ran %s ticks: expected %.1f%% actual %.1f%% err %.1f%%",
		r.Uid, r.Demand, r.Cap, r.Eff, humanize.Comma(int64(r.Ticks)),
		100*r.Expected, 100*r.Actual, 100*r.RelErr)
}

// Report compares each user's share of the measurement window with the
// share its capped weight entitles it to.
type Report struct {
	Id      string
	Rows    []Row
	Total   proc.Ttick // ticks of workload users
	Other   proc.Ttick // ticks of everyone else
	Quanta  proc.Ttick
	Idle    proc.Ttick
	MeanErr float64
	MaxErr  float64
}

func newReport(config *param.Config, wl *workload.Workload, delta []proc.Ttick) *Report {
	rep := &Report{
		Id:   randstr.Hex(8),
		Rows: make([]Row, 0, len(wl.Users)),
	}
	inwl := make(map[proc.Tuid]bool)
	eff := proc.Tweight(0)
	for _, u := range wl.Users {
		inwl[u.Uid] = true
		r := Row{
			Uid:      u.Uid,
			Children: u.Children,
			Demand:   u.Demand(),
			Cap:      config.Cap(u.Uid),
			Ticks:    delta[u.Uid],
		}
		r.Eff = r.Demand
		if r.Eff > r.Cap {
			r.Eff = r.Cap
		}
		eff += r.Eff
		rep.Total += r.Ticks
		rep.Rows = append(rep.Rows, r)
	}
	for uid, n := range delta {
		if !inwl[proc.Tuid(uid)] {
			rep.Other += n
		}
	}
	errs := make(stats.Float64Data, 0, len(rep.Rows))
	for i := range rep.Rows {
		r := &rep.Rows[i]
		if eff > 0 {
			r.Expected = float64(r.Eff) / float64(eff)
		}
		if rep.Total > 0 {
			r.Actual = float64(r.Ticks) / float64(rep.Total)
		}
		if r.Expected > 0 {
			r.RelErr = math.Abs(r.Actual-r.Expected) / r.Expected
		}
		errs = append(errs, r.RelErr)
	}
	var err error
	if rep.MeanErr, err = stats.Mean(errs); err != nil {
		db.DPrintf(db.SIM_CURRENCY, "Mean %v: %v", errs, err)
	}
	if rep.MaxErr, err = stats.Max(errs); err != nil {
		db.DPrintf(db.SIM_CURRENCY, "Max %v: %v", errs, err)
	}
	return rep
}

// Check returns an error naming the first user whose share is off by
// more than tol, relative to its expected share.
func (rep *Report) Check(tol float64) error {
	if rep.Total == 0 {
		return errors.Errorf("run %v: no ticks in window", rep.Id)
	}
	for i := range rep.Rows {
		if r := &rep.Rows[i]; r.RelErr > tol {
			return errors.Errorf("run %v: %v off by %.1f%% (tolerance %.1f%%)", rep.Id, r.Uid, 100*r.RelErr, 100*tol)
		}
	}
	return nil
}

func (rep *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %v: %s quanta (%s idle)\n", rep.Id, humanize.Comma(int64(rep.Quanta)), humanize.Comma(int64(rep.Idle)))
	for i := range rep.Rows {
		fmt.Fprintf(&sb, "  %v\n", &rep.Rows[i])
	}
	fmt.Fprintf(&sb, "  total %s ticks, other users %s\n", humanize.Comma(int64(rep.Total)), humanize.Comma(int64(rep.Other)))
	fmt.Fprintf(&sb, "  relative error mean %.1f%% max %.1f%%", 100*rep.MeanErr, 100*rep.MaxErr)
	return sb.String()
}
