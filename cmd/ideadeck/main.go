// Command ideadeck is the interactive business-idea browser.
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/ideadeck/internal/backend"
	"github.com/abelbrown/ideadeck/internal/config"
	"github.com/abelbrown/ideadeck/internal/fetch"
	"github.com/abelbrown/ideadeck/internal/ingest"
	"github.com/abelbrown/ideadeck/internal/logging"
	"github.com/abelbrown/ideadeck/internal/otel"
	"github.com/abelbrown/ideadeck/internal/paging"
	"github.com/abelbrown/ideadeck/internal/ui"
)

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dataDir := config.DataDir()
	if err := logging.Init(dataDir, os.Getenv("IDEADECK_DEBUG") != ""); err != nil {
		log.Fatalf("Failed to start logging: %v", err)
	}
	defer logging.Close()

	// Event log feeds both the JSONL file and the debug overlay.
	events, err := otel.OpenFile(filepath.Join(dataDir, "events.jsonl"))
	if err != nil {
		logging.Warn("Event log unavailable", "err", err)
		events = otel.NewNullLogger()
	}
	defer events.Close()
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events.SetRingBuffer(ring)
	events.Info(otel.KindStartup, "main", "ideadeck "+logging.Version+" backend="+cfg.Backend)

	b, err := backend.Open(cfg, events)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer b.Close()

	fetcher := fetch.New(b.Store, events)
	initial := cfg.DefaultFilter()
	pager := paging.New(fetcher, &initial, events)

	app := ui.NewApp(pager, ui.NewCommands(b.Store, b.Saved, events), ui.Options{
		Filter:   initial,
		Debounce: time.Duration(cfg.UI.DebounceMs) * time.Millisecond,
		Events:   events,
		Ring:     ring,
	})

	// Create program
	program := tea.NewProgram(app, tea.WithAltScreen())

	// Only the embedded store accepts harvested ideas. IDEADECK_OFFLINE
	// skips the network entirely.
	var harvester *ingest.Harvester
	if b.Local != nil && os.Getenv("IDEADECK_OFFLINE") == "" {
		harvester = ingest.New(b.Local, ingest.NewFeedFetcher(30*time.Second), cfg.SourceList(), events)
		harvester.Start(ctx, ingest.DefaultInterval, func(r ingest.Result) {
			program.Send(ui.HarvestComplete{Source: r.Source, NewIdeas: r.NewIdeas, Err: r.Err})
		})
	}

	// Run UI (blocks until quit)
	if _, err := program.Run(); err != nil {
		logging.Error("Error running program", "err", err)
	}

	// Graceful shutdown: stop the harvester before the store closes, then
	// the controller before the event log.
	cancel()
	if harvester != nil {
		harvester.Wait()
	}
	pager.Close()
	events.Info(otel.KindShutdown, "main", "bye")
}
