// Package paging is the incremental-pagination controller.
//
// The state machine is the pure function Transition(State, Event) returning
// the next State and the Effects to run. Controller is the runtime around
// it: one goroutine applies events in order, runs effects through a
// fetch.PageFetcher, and publishes snapshots to subscribers.
//
// Invariants held by Transition:
//   - at most one attempt is in flight; a resetting event supersedes it and
//     LoadMore while loading is dropped
//   - results tagged with any attempt but the in-flight one are discarded
//   - once Total is known, HasMore is false whenever len(Records) >= Total
//   - after Teardown no event changes the state
package paging

import "github.com/abelbrown/ideadeck/internal/model"

// State is everything the controller owns. Treat it as a value: Transition
// never mutates the Records slice it was given.
type State struct {
	Filter  model.Filter
	Records []model.Idea
	Page    int  // 1-based cursor; 0 before Initialize
	Total   *int // nil = unknown, must refetch
	Loading bool
	Err     error
	HasMore bool

	InFlight  uint64 // attempt awaiting results, 0 = idle
	Resetting bool   // InFlight replaces Records rather than appending
	Seq       uint64 // last attempt ID issued
	Closed    bool
}

// Snapshot is the read-only view handed to presentation code.
type Snapshot struct {
	Filter  model.Filter
	Records []model.Idea
	Total   *int
	Page    int
	Loading bool
	Err     error
	HasMore bool
}

// Snapshot returns the caller-facing view of s.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Filter:  s.Filter,
		Records: s.Records,
		Total:   s.Total,
		Page:    s.Page,
		Loading: s.Loading,
		Err:     s.Err,
		HasMore: s.HasMore,
	}
}

// Empty reports a settled listing with nothing in it.
func (s Snapshot) Empty() bool {
	return !s.Loading && s.Err == nil && len(s.Records) == 0
}

// Event is an input to Transition.
type Event interface{ event() }

// Initialize sets the filter (defaults when nil) and loads page 1.
type Initialize struct{ Filter *model.Filter }

// UpdateFilter replaces the filter and reloads from page 1.
type UpdateFilter struct{ Filter model.Filter }

// LoadMore appends the next page.
type LoadMore struct{}

// Refresh reloads the current filter from page 1, recounting.
type Refresh struct{}

// CountLoaded carries a count result for Attempt.
type CountLoaded struct {
	Attempt uint64
	Total   int
}

// PageLoaded carries a page result for Attempt.
type PageLoaded struct {
	Attempt uint64
	Records []model.Idea
}

// FetchFailed carries a store failure for Attempt.
type FetchFailed struct {
	Attempt uint64
	Err     error
}

// FetchCancelled reports that Attempt resolved as cancelled.
type FetchCancelled struct{ Attempt uint64 }

// Teardown cancels the in-flight attempt and freezes the state.
type Teardown struct{}

func (Initialize) event()     {}
func (UpdateFilter) event()   {}
func (LoadMore) event()       {}
func (Refresh) event()        {}
func (CountLoaded) event()    {}
func (PageLoaded) event()     {}
func (FetchFailed) event()    {}
func (FetchCancelled) event() {}
func (Teardown) event()       {}

// RequestKind selects the query a Request runs.
type RequestKind int

const (
	RequestCount RequestKind = iota
	RequestPage
)

func (k RequestKind) String() string {
	if k == RequestCount {
		return "count"
	}
	return "page"
}

// Request is one store query belonging to an attempt.
type Request struct {
	Attempt uint64
	Kind    RequestKind
	Filter  model.Filter
	Offset  int
	Limit   int
}

// Effects are the side effects a transition asks the runtime to perform,
// in field order.
type Effects struct {
	Cancel uint64   // attempt to cancel, 0 = none
	Fetch  *Request // request to issue, nil = none
	Close  bool     // release the fetcher for good
}

// None reports whether e asks for nothing.
func (e Effects) None() bool {
	return e.Cancel == 0 && e.Fetch == nil && !e.Close
}
