package proc

type Tstate uint8

const (
	UNUSED Tstate = iota
	EMBRYO
	SLEEPING
	RUNNABLE
	RUNNING
	ZOMBIE
)

func (st Tstate) String() string {
	switch st {
	case UNUSED:
		return "UNUSED"
	case EMBRYO:
		return "EMBRYO"
	case SLEEPING:
		return "SLEEPING"
	case RUNNABLE:
		return "RUNNABLE"
	case RUNNING:
		return "RUNNING"
	case ZOMBIE:
		return "ZOMBIE"
	default:
		return "unknown state"
	}
}

// Schedulable states: a proc in one of them counts towards its owner's
// demand, provided it holds tickets.
func (st Tstate) IsSchedulable() bool {
	return st == RUNNABLE || st == RUNNING
}

func (st Tstate) InUse() bool {
	return st != UNUSED
}
