// Package otel provides structured observability for IdeaDeck.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer keeps recent events in memory for the status overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Paging pipeline
	KindPageCount    EventKind = "page.count"
	KindPageFetch    EventKind = "page.fetch"
	KindPageComplete EventKind = "page.complete"
	KindPageCancel   EventKind = "page.cancel"
	KindPageError    EventKind = "page.error"
	KindPageReset    EventKind = "page.reset"

	// Saved state
	KindSave   EventKind = "saved.save"
	KindUnsave EventKind = "saved.unsave"

	// Ingest
	KindIngestStart    EventKind = "ingest.start"
	KindIngestComplete EventKind = "ingest.complete"
	KindIngestError    EventKind = "ingest.error"

	// Transport
	KindHTTPRetry   EventKind = "http.retry"
	KindBreakerTrip EventKind = "http.breaker"

	// UI
	KindKeyPress EventKind = "ui.key"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace (IDEADECK_TRACE)
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "paging", "fetch", "ui", "ingest", "main"
	SessionID string         `json:"session_id,omitempty"`
	Attempt   uint64         `json:"attempt,omitempty"` // paging attempt correlation
	Filter    string         `json:"filter,omitempty"`
	Offset    int            `json:"offset,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Source    string         `json:"source,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
