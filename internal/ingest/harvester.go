package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/ideadeck/internal/logging"
	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/otel"
)

// DefaultInterval is the time between harvest cycles.
const DefaultInterval = 15 * time.Minute

// fetchTimeout bounds each individual feed fetch.
const fetchTimeout = 30 * time.Second

// maxConcurrentFetches limits parallel feed fetches.
const maxConcurrentFetches = 4

// fetcher is the feed reader, injectable for tests.
type fetcher interface {
	Fetch(ctx context.Context, src model.Source) ([]model.Idea, error)
}

// Sink persists harvested ideas. *store.Store satisfies it.
type Sink interface {
	SaveIdeas(ctx context.Context, ideas []model.Idea) (int, error)
	UpdateFeedStatus(name string, ideaCount int, lastError string) error
}

// Result is the outcome of harvesting one source.
type Result struct {
	Source   string
	Fetched  int
	NewIdeas int
	Err      error
}

// Harvester fetches every source in parallel and stores what it finds.
// Context cancellation is the only stop mechanism.
type Harvester struct {
	sink    Sink
	fetcher fetcher
	sources []model.Source // immutable after construction
	events  *otel.Logger
	wg      sync.WaitGroup
}

// New creates a Harvester using the real feed fetcher. events may be nil.
func New(sink Sink, f *FeedFetcher, sources []model.Source, events *otel.Logger) *Harvester {
	return NewWithFetcher(sink, f, sources, events)
}

// NewWithFetcher allows injecting a custom fetcher.
func NewWithFetcher(sink Sink, f fetcher, sources []model.Source, events *otel.Logger) *Harvester {
	cp := make([]model.Source, len(sources))
	copy(cp, sources)
	return &Harvester{sink: sink, fetcher: f, sources: cp, events: events}
}

// Start harvests immediately and then every interval until ctx is done.
// notify, if non-nil, receives each per-source Result.
func (h *Harvester) Start(ctx context.Context, interval time.Duration, notify func(Result)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		h.harvest(ctx, notify)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.harvest(ctx, notify)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
func (h *Harvester) Wait() {
	h.wg.Wait()
}

// HarvestAll runs one cycle synchronously and returns the results sorted
// by source name.
func (h *Harvester) HarvestAll(ctx context.Context) []Result {
	var mu sync.Mutex
	var results []Result
	h.harvest(ctx, func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})
	sort.Slice(results, func(i, j int) bool { return results[i].Source < results[j].Source })
	return results
}

func (h *Harvester) harvest(ctx context.Context, notify func(Result)) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	start := time.Now()
	h.events.Info(otel.KindIngestStart, "ingest", "harvest cycle")

	for _, src := range h.sources {
		src := src
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r := h.harvestSource(ctx, src)
			if notify != nil {
				notify(r)
			}
			return nil // errors are reported per source
		})
	}
	_ = g.Wait()

	h.events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindIngestComplete,
		Comp:  "ingest",
		Count: len(h.sources),
		Dur:   time.Since(start),
	})
}

func (h *Harvester) harvestSource(ctx context.Context, src model.Source) Result {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	r := Result{Source: src.Name}
	ideas, err := h.fetcher.Fetch(fetchCtx, src)
	if err == nil && len(ideas) > 0 {
		r.Fetched = len(ideas)
		ideas = Dedup(ByAge(ideas, maxPostAge, time.Now()))
		r.NewIdeas, err = h.sink.SaveIdeas(ctx, ideas)
	}
	r.Err = err

	lastErr := ""
	if err != nil {
		lastErr = err.Error()
		logging.Warn("harvest failed", "source", src.Name, "error", err)
		h.events.Emit(otel.Event{
			Level:  otel.LevelError,
			Kind:   otel.KindIngestError,
			Comp:   "ingest",
			Source: src.Name,
			Err:    lastErr,
		})
	} else {
		logging.Debug("harvested", "source", src.Name, "fetched", r.Fetched, "new", r.NewIdeas)
	}

	if serr := h.sink.UpdateFeedStatus(src.Name, r.NewIdeas, lastErr); serr != nil {
		logging.Warn("feed status update failed", "source", src.Name, "error", serr)
	}
	return r
}
