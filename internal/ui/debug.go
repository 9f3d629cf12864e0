package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/ideadeck/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing pipeline stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Paging Stats"))
	lines = append(lines, fmt.Sprintf("  Resets:     %d", stats[otel.KindPageReset]))
	lines = append(lines, fmt.Sprintf("  Requests:   %d count, %d page",
		stats[otel.KindPageCount], stats[otel.KindPageFetch]))
	lines = append(lines, fmt.Sprintf("  Outcomes:   %d complete, %d cancelled, %d errors",
		stats[otel.KindPageComplete], stats[otel.KindPageCancel], stats[otel.KindPageError]))
	lines = append(lines, fmt.Sprintf("  Saved:      %d saved, %d unsaved",
		stats[otel.KindSave], stats[otel.KindUnsave]))
	lines = append(lines, fmt.Sprintf("  Transport:  %d retries, %d breaker changes",
		stats[otel.KindHTTPRetry], stats[otel.KindBreakerTrip]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events (%d paging)",
		ring.Len(), ring.Cap(), len(ring.Match("page."))))
	if e, ok := ring.LastError(); ok {
		lines = append(lines, fmt.Sprintf("  Last error: %s %s  %s",
			formatAge(time.Since(e.Time)), e.Kind, truncateRunes(e.Err, 40)))
	}
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-16s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Attempt != 0 {
			line += fmt.Sprintf("  #%d", e.Attempt)
		}
		if e.Filter != "" {
			line += "  " + truncateRunes(e.Filter, 28)
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 30)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}

	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 76
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}
