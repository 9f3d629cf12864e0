// Package ui provides the Bubble Tea TUI for IdeaDeck.
package ui

import (
	"github.com/abelbrown/ideadeck/internal/analytics"
	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/paging"
	"github.com/abelbrown/ideadeck/internal/saved"
)

// SnapshotMsg carries a new listing state from the pagination controller.
type SnapshotMsg paging.Snapshot

// SavedToggled is sent when a save or unsave completes.
type SavedToggled struct {
	ID      int64
	Outcome saved.Outcome
	Err     error
}

// SavedLoaded is sent when the saved list has been fetched.
type SavedLoaded struct {
	Ideas []model.Idea
	IDs   map[int64]bool
	Err   error
}

// AnalyticsLoaded is sent when dashboard figures are ready.
type AnalyticsLoaded struct {
	Counts  analytics.Counts
	Summary analytics.Summary
	Err     error
}

// HarvestComplete is sent when a background feed harvest finishes a source.
type HarvestComplete struct {
	Source   string
	NewIdeas int
	Err      error
}

// debounceMsg fires after the search input has been idle. Stale sequence
// numbers are ignored.
type debounceMsg struct {
	seq int
}
