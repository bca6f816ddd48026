// Package workload describes what the currency harness runs: a set of
// users, each with a manager proc and some children sharing the
// manager's tickets, plus the warm-up and measurement window lengths.
package workload

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	db "lottery/debug"
	"lottery/param"
	"lottery/proc"
	"lottery/serr"
)

const (
	TICKETS = proc.Ttickets(100)
	WARMUP  = proc.Ttick(200)
	WINDOW  = proc.Ttick(1000)
)

type User struct {
	Uid      proc.Tuid     `yaml:"uid" mapstructure:"uid"`
	Tickets  proc.Ttickets `yaml:"tickets" mapstructure:"tickets"`
	Children int           `yaml:"children" mapstructure:"children"`
}

// Demand is the manager's tickets plus its children's.
func (u User) Demand() proc.Ttickets {
	return proc.Ttickets(u.Children+1) * u.Tickets
}

func (u User) String() string {
	return fmt.Sprintf("{%v tickets %d children %d}", u.Uid, u.Tickets, u.Children)
}

type Workload struct {
	Users  []User     `yaml:"users" mapstructure:"users"`
	Warmup proc.Ttick `yaml:"warmup" mapstructure:"warmup"`
	Window proc.Ttick `yaml:"window" mapstructure:"window"`
}

// Default is three users with 1, 4, and 14 children at 100 tickets each.
func Default() *Workload {
	return &Workload{
		Users: []User{
			{Uid: 1, Tickets: TICKETS, Children: 1},
			{Uid: 2, Tickets: TICKETS, Children: 4},
			{Uid: 3, Tickets: TICKETS, Children: 14},
		},
		Warmup: WARMUP,
		Window: WINDOW,
	}
}

// NProc is the number of procs the workload registers, not counting
// init.
func (wl *Workload) NProc() int {
	n := 0
	for _, u := range wl.Users {
		n += u.Children + 1
	}
	return n
}

func (wl *Workload) fill() {
	for i := range wl.Users {
		if wl.Users[i].Tickets == 0 {
			wl.Users[i].Tickets = TICKETS
		}
	}
	if wl.Warmup == 0 {
		wl.Warmup = WARMUP
	}
	if wl.Window == 0 {
		wl.Window = WINDOW
	}
}

// Validate checks wl against the scheduler's limits. Init is a uid 0
// proc, so the workload gets NPROC-1 slots.
func (wl *Workload) Validate(config *param.Config) error {
	if len(wl.Users) == 0 {
		return serr.NewErr(serr.TErrInval, "no users")
	}
	seen := make(map[proc.Tuid]bool)
	for _, u := range wl.Users {
		if !config.ValidUid(u.Uid) {
			return serr.NewErr(serr.TErrInvalUid, u.Uid)
		}
		if seen[u.Uid] {
			return serr.NewErr(serr.TErrExists, u.Uid)
		}
		seen[u.Uid] = true
		if u.Tickets <= 0 {
			return serr.NewErr(serr.TErrInvalTickets, u.String())
		}
		if u.Children < 0 {
			return serr.NewErr(serr.TErrInval, u.String())
		}
	}
	if n := wl.NProc(); n > config.Sched.NPROC-1 {
		return serr.NewErr(serr.TErrCapacity, fmt.Sprintf("%d procs, %d slots", n, config.Sched.NPROC-1))
	}
	return nil
}

// Decode parses a YAML workload. Values are weakly typed, so "14" and
// 14 both work for a child count.
func Decode(b []byte) (*Workload, error) {
	m := make(map[string]interface{})
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrapf(err, "yaml workload")
	}
	wl := &Workload{}
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           wl,
	})
	if err != nil {
		return nil, err
	}
	if err := d.Decode(m); err != nil {
		return nil, errors.Wrapf(err, "decode workload")
	}
	wl.fill()
	return wl, nil
}

func Load(pn string) (*Workload, error) {
	b, err := os.ReadFile(pn)
	if err != nil {
		return nil, errors.Wrapf(err, "read workload %v", pn)
	}
	wl, err := Decode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "workload %v", pn)
	}
	db.DPrintf(db.SIM_WORKLOAD, "Load %v: %v", pn, wl)
	return wl, nil
}

func (wl *Workload) Encode() ([]byte, error) {
	return yaml.Marshal(wl)
}

func (wl *Workload) String() string {
	return fmt.Sprintf("{users %v warmup %v window %v}", wl.Users, wl.Warmup, wl.Window)
}
