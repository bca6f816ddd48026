package proc

import (
	"strconv"
)

type Tpid int

const (
	NOT_SET Tpid = 0
	INITPID Tpid = 1
)

func (pid Tpid) String() string {
	if pid == NOT_SET {
		return "pid-"
	}
	return "pid" + strconv.Itoa(int(pid))
}
