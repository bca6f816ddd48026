// Package proc holds the types shared by the scheduler core, its
// syscall surface, and the harness: ids, ticket counts, process states,
// and the per-slot statistics snapshot.
package proc

import (
	"fmt"
)

type Tuid int
type Ttickets int
type Ttick uint64

// Weight of a user in the inter-user draw, in tickets.
type Tweight = Ttickets

const (
	NO_UID  Tuid = -1
	NO_SLOT      = -1
)

// Defaults matching the harness' build: 8 user ids, 64 slots, and a
// per-user currency of 300 tickets.
const (
	NUID          = 8
	NPROC         = 64
	USER_CURRENCY = Ttickets(300)
)

// Most tickets one proc may hold; settickets above it fails.
const MAX_TICKETS = Ttickets(1 << 30)

func (uid Tuid) String() string {
	if uid == NO_UID {
		return "uid-"
	}
	return fmt.Sprintf("uid%d", int(uid))
}

func (t Ttick) String() string {
	return fmt.Sprintf("%dT", uint64(t))
}
