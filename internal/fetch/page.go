// Package fetch executes the count and range queries behind one page of a
// listing and owns cancellation of the request in flight.
//
// Every request belongs to an attempt. Begin issues the token for a new
// attempt and cancels its predecessor first, so at most one attempt per
// PageFetcher can reach the store at a time. A call whose token was
// cancelled resolves to ErrCancelled no matter what the transport returned.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/otel"
	"github.com/abelbrown/ideadeck/internal/query"
	"github.com/abelbrown/ideadeck/internal/remote"
)

// ErrCancelled is the outcome of a superseded or torn-down attempt.
// It is not a store failure and must never be surfaced as one.
var ErrCancelled = errors.New("fetch cancelled")

// Token ties requests to one attempt.
type Token struct {
	attempt uint64
	ctx     context.Context
	cancel  context.CancelFunc
}

// Attempt returns the attempt this token was issued for.
func (t *Token) Attempt() uint64 { return t.attempt }

// Cancelled reports whether the attempt has been superseded or cancelled.
func (t *Token) Cancelled() bool { return t.ctx.Err() != nil }

// Context is cancelled together with the token.
func (t *Token) Context() context.Context { return t.ctx }

// PageFetcher runs count and page queries against a remote.Store.
type PageFetcher struct {
	store  remote.Store
	events *otel.Logger

	mu      sync.Mutex
	current *Token
	closed  bool
}

// New creates a PageFetcher reading from store. events may be nil.
func New(store remote.Store, events *otel.Logger) *PageFetcher {
	return &PageFetcher{store: store, events: events}
}

// Begin cancels the current attempt, if any, and returns a token for attempt.
// After Close the returned token is already cancelled.
func (f *PageFetcher) Begin(attempt uint64) *Token {
	ctx, cancel := context.WithCancel(context.Background())
	tok := &Token{attempt: attempt, ctx: ctx, cancel: cancel}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		f.current.cancel()
	}
	if f.closed {
		cancel()
	}
	f.current = tok
	return tok
}

// Cancel cancels attempt if it is still the current one.
func (f *PageFetcher) Cancel(attempt uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || f.current.attempt != attempt {
		return false
	}
	f.current.cancel()
	return true
}

// Close cancels whatever is in flight. Later tokens start cancelled.
func (f *PageFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.current != nil {
		f.current.cancel()
	}
}

// FetchCount returns the number of records matching filter.
func (f *PageFetcher) FetchCount(tok *Token, filter model.Filter) (int, error) {
	if tok.Cancelled() {
		return 0, ErrCancelled
	}
	start := time.Now()
	n, err := f.store.Count(tok.ctx, query.Count(filter))
	if tok.Cancelled() {
		return 0, ErrCancelled
	}
	if err != nil {
		return 0, remote.Wrap("count", err)
	}
	if n < 0 {
		return 0, &remote.StoreError{Op: "count", Err: fmt.Errorf("negative count %d", n)}
	}
	f.events.Emit(otel.Event{
		Level: otel.LevelDebug, Kind: otel.KindPageCount, Comp: "fetch",
		Attempt: tok.attempt, Filter: filter.Describe(), Count: n, Dur: time.Since(start),
	})
	return n, nil
}

// FetchPage returns up to limit records matching filter starting at offset.
// Fewer than limit records means the final page.
func (f *PageFetcher) FetchPage(tok *Token, filter model.Filter, offset, limit int) ([]model.Idea, error) {
	if tok.Cancelled() {
		return nil, ErrCancelled
	}
	start := time.Now()
	ideas, err := f.store.Select(tok.ctx, query.Build(filter, offset, limit))
	if tok.Cancelled() {
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, remote.Wrap("select", err)
	}
	if len(ideas) > limit {
		ideas = ideas[:limit]
	}
	f.events.Emit(otel.Event{
		Level: otel.LevelDebug, Kind: otel.KindPageFetch, Comp: "fetch",
		Attempt: tok.attempt, Filter: filter.Describe(), Offset: offset, Count: len(ideas), Dur: time.Since(start),
	})
	return ideas, nil
}
