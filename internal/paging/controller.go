package paging

import (
	"errors"
	"sync"

	"github.com/abelbrown/ideadeck/internal/fetch"
	"github.com/abelbrown/ideadeck/internal/logging"
	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/otel"
)

// inboxSize bounds queued operations and fetch results.
const inboxSize = 32

// subscriberBuffer is the capacity of each Subscribe channel.
const subscriberBuffer = 16

// Controller runs Transition for one listing.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Operations are queued to a single
// event-loop goroutine and applied in arrival order, so an UpdateFilter sent
// after a LoadMore always wins. Fetches run on their own goroutines and post
// their outcome back to the loop tagged with their attempt.
//
// # Subscriptions
//
// Subscribe returns a buffered channel of snapshots. A slow subscriber loses
// intermediate snapshots, never the latest one. Channels are closed by Close.
type Controller struct {
	fetcher *fetch.PageFetcher
	events  *otel.Logger

	inbox chan Event
	done  chan struct{}
	wg    sync.WaitGroup // fetch goroutines

	// Owned by the loop goroutine.
	state State
	token *fetch.Token

	mu   sync.RWMutex
	snap Snapshot
	subs []chan Snapshot

	closeOnce sync.Once
}

// New starts a controller reading through fetcher and loads page 1 of
// initial (defaults when nil). events may be nil.
func New(fetcher *fetch.PageFetcher, initial *model.Filter, events *otel.Logger) *Controller {
	c := &Controller{
		fetcher: fetcher,
		events:  events,
		inbox:   make(chan Event, inboxSize),
		done:    make(chan struct{}),
	}
	go c.loop()
	c.send(Initialize{Filter: initial})
	return c
}

// LoadMore appends the next page. Dropped while a fetch is in flight or
// when no more records are available.
func (c *Controller) LoadMore() { c.send(LoadMore{}) }

// Refresh reloads the current filter from page 1.
func (c *Controller) Refresh() { c.send(Refresh{}) }

// UpdateFilter replaces the filter and reloads from page 1, superseding any
// fetch in flight.
func (c *Controller) UpdateFilter(f model.Filter) { c.send(UpdateFilter{Filter: f}) }

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Subscribe returns a channel receiving every published snapshot, starting
// with the current one. Returns a closed channel after Close.
func (c *Controller) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		close(ch)
		return ch
	default:
	}
	ch <- c.snap
	c.subs = append(c.subs, ch)
	return ch
}

// Close cancels any fetch in flight and stops the controller. No state
// change is published afterwards. Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.send(Teardown{})
		<-c.done
		c.wg.Wait()
	})
}

// send queues ev for the loop. Returns false once the loop has stopped.
func (c *Controller) send(ev Event) bool {
	select {
	case c.inbox <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) loop() {
	log := logging.WithPrefix("paging")
	for ev := range c.inbox {
		prev := c.state
		next, eff := Transition(c.state, ev)
		c.state = next
		c.trace(prev, next, ev)

		if eff.Cancel != 0 && c.fetcher.Cancel(eff.Cancel) {
			log.Debug("cancelled attempt", "attempt", eff.Cancel)
		}
		if eff.Fetch != nil {
			c.start(*eff.Fetch)
		}
		if eff.Close {
			c.fetcher.Close()
			c.shutdown()
			return
		}
		c.publish(next.Snapshot())
	}
}

// start issues req on its own goroutine. Requests of one attempt share a
// token; the first request of a new attempt supersedes the previous token.
func (c *Controller) start(req Request) {
	if c.token == nil || c.token.Attempt() != req.Attempt {
		c.token = c.fetcher.Begin(req.Attempt)
	}
	tok := c.token

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var ev Event
		switch req.Kind {
		case RequestCount:
			n, err := c.fetcher.FetchCount(tok, req.Filter)
			ev = outcome(req.Attempt, err, CountLoaded{Attempt: req.Attempt, Total: n})
		case RequestPage:
			ideas, err := c.fetcher.FetchPage(tok, req.Filter, req.Offset, req.Limit)
			ev = outcome(req.Attempt, err, PageLoaded{Attempt: req.Attempt, Records: ideas})
		}
		c.send(ev)
	}()
}

func outcome(attempt uint64, err error, ok Event) Event {
	switch {
	case err == nil:
		return ok
	case errors.Is(err, fetch.ErrCancelled):
		return FetchCancelled{Attempt: attempt}
	default:
		return FetchFailed{Attempt: attempt, Err: err}
	}
}

// publish stores snap and offers it to every subscriber without blocking.
// A full channel drops its oldest snapshot to make room.
func (c *Controller) publish(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// shutdown stops accepting events and closes subscriber channels.
func (c *Controller) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	close(c.done)
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}

// trace reports attempt boundaries to the event log. Purely informational.
func (c *Controller) trace(prev, next State, ev Event) {
	if c.events == nil {
		return
	}
	base := otel.Event{Comp: "paging", Filter: next.Filter.Describe()}

	switch ev := ev.(type) {
	case Initialize, UpdateFilter, Refresh:
		e := base
		e.Level, e.Kind, e.Attempt = otel.LevelInfo, otel.KindPageReset, next.InFlight
		c.events.Emit(e)
	case PageLoaded:
		if prev.InFlight == ev.Attempt && !next.Closed {
			e := base
			e.Level, e.Kind, e.Attempt, e.Count = otel.LevelInfo, otel.KindPageComplete, ev.Attempt, len(next.Records)
			c.events.Emit(e)
		}
	case FetchCancelled:
		e := base
		e.Level, e.Kind, e.Attempt = otel.LevelDebug, otel.KindPageCancel, ev.Attempt
		c.events.Emit(e)
	case FetchFailed:
		if prev.InFlight == ev.Attempt {
			e := base
			e.Level, e.Kind, e.Attempt, e.Err = otel.LevelError, otel.KindPageError, ev.Attempt, ev.Err.Error()
			c.events.Emit(e)
		}
	}
}
