package otel

import (
	"fmt"
	"os"
	"sync/atomic"
)

// traceEnabled is set once at package init from IDEADECK_TRACE.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("IDEADECK_TRACE") != "")
}

// TraceEnabled reports whether IDEADECK_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// setTraceEnabled overrides the flag for tests.
func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}

// TraceMsg records the type of a UI message when tracing is on.
// A no-op otherwise, so it can sit on the hot Update path.
func TraceMsg(l *Logger, msg any) {
	if !TraceEnabled() || l == nil {
		return
	}
	l.Emit(Event{Level: LevelDebug, Kind: KindMsgReceived, Comp: "ui", Msg: fmt.Sprintf("%T", msg)})
}
