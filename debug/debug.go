package debug

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//
// Debug output is controled by LOTTERYDEBUG environment variable, which
// can be a list of labels (e.g., "LOTTERY;LEDGER").
//

const LOTTERYDEBUG = "LOTTERYDEBUG"

var (
	mu     sync.Mutex
	labels map[Tselector]bool
	log    *zap.SugaredLogger
)

func init() {
	SetLabels(os.Getenv(LOTTERYDEBUG))
	log = newLogger()
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	l, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("debug: build logger: %v", err))
	}
	return l.Sugar()
}

// SetLabels replaces the enabled label set; s uses the LOTTERYDEBUG
// syntax.
func SetLabels(s string) {
	m := make(map[Tselector]bool)
	for _, l := range strings.Split(s, ";") {
		if l = strings.TrimSpace(l); l != "" {
			m[Tselector(l)] = true
		}
	}
	mu.Lock()
	defer mu.Unlock()
	labels = m
}

func WillBePrinted(label Tselector) bool {
	if label == ALWAYS || label == ERROR {
		return true
	}
	mu.Lock()
	defer mu.Unlock()
	return labels[label]
}

func DPrintf(label Tselector, format string, v ...interface{}) {
	if WillBePrinted(label) {
		log.Infof("%v %v", label, fmt.Sprintf(format, v...))
	}
}

func DFatalf(format string, v ...interface{}) {
	// Get info for the caller.
	pc, file, line, ok := runtime.Caller(1)
	fnDetails := runtime.FuncForPC(pc)
	if ok && fnDetails != nil {
		log.Fatalf("FATAL %v %v:%v %v", fnDetails.Name(), file, line, fmt.Sprintf(format, v...))
	} else {
		log.Fatalf("FATAL (missing details) %v", fmt.Sprintf(format, v...))
	}
}

// Sync flushes buffered log output; call before exit.
func Sync() {
	log.Sync()
}
