package otel

import (
	"bytes"
	"strings"
	"testing"
)

func TestTraceEnabledToggle(t *testing.T) {
	orig := TraceEnabled()
	defer setTraceEnabled(orig)

	setTraceEnabled(true)
	if !TraceEnabled() {
		t.Error("TraceEnabled() should be true after setTraceEnabled(true)")
	}

	setTraceEnabled(false)
	if TraceEnabled() {
		t.Error("TraceEnabled() should be false after setTraceEnabled(false)")
	}
}

type tracedMsg struct{}

func TestTraceMsg(t *testing.T) {
	orig := TraceEnabled()
	defer setTraceEnabled(orig)

	var buf bytes.Buffer
	l := NewLogger(&buf)

	setTraceEnabled(false)
	TraceMsg(l, tracedMsg{})
	setTraceEnabled(true)
	TraceMsg(l, tracedMsg{})
	TraceMsg(nil, tracedMsg{})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 traced line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "otel.tracedMsg") {
		t.Errorf("trace line missing message type: %s", lines[0])
	}
}
