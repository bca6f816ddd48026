package perf

import (
	"fmt"
	"time"

	db "lottery/debug"
	"lottery/proc"
)

var (
	TIME_NOT_SET time.Time = time.Unix(0, 0)
)

// Some convenience functions for logging performance-related data
func LogQuantumLatency(format string, now proc.Ttick, opStart time.Time, v ...interface{}) {
	// Bail out early if not logging
	if !db.WillBePrinted(db.PERF) {
		return
	}
	var sinceOpStart time.Duration
	if opStart != TIME_NOT_SET {
		sinceOpStart = time.Since(opStart)
	}
	db.DPrintf(db.PERF, "[%v] %v op:%v", now, fmt.Sprintf(format, v...), sinceOpStart)
}
