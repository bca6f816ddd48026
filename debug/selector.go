package debug

type Tselector string

// ALWAYS
const (
	ALWAYS Tselector = "ALWAYS"
	ERROR            = "ERROR"
	NEVER            = "NEVER"
)

// ERR
const (
	ERR Tselector = "_ERR"
)

// Tests
const (
	TEST  Tselector = "TEST"
	TEST1           = "TEST1"
)

// Lock debugging: turns on go-deadlock detection for the scheduler lock.
const (
	LOCKDEP Tselector = "LOCKDEP"
)

// Scheduler core
const (
	LOTTERY     Tselector = "LOTTERY"
	LOTTERY_ERR           = LOTTERY + ERR
	DRAW                  = "DRAW"
	LEDGER                = "LEDGER"
	PTABLE                = "PTABLE"
	CLOCK                 = "CLOCK"
)

// Syscall surface
const (
	KERNEL     Tselector = "KERNEL"
	KERNEL_ERR           = KERNEL + ERR
)

// Simulation
const (
	SIM_CURRENCY Tselector = "SIM_CURRENCY"
	SIM_WORKLOAD           = "SIM_WORKLOAD"
	PARAM                  = "PARAM"
	PERF                   = "PERF"
	TRACING                = "TRACING"
)
