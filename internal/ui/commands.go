package ui

import (
	"context"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/ideadeck/internal/analytics"
	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/otel"
	"github.com/abelbrown/ideadeck/internal/paging"
	"github.com/abelbrown/ideadeck/internal/remote"
	"github.com/abelbrown/ideadeck/internal/saved"
)

// commandTimeout bounds each background command.
const commandTimeout = 30 * time.Second

// Pager is the listing the Discover tab renders. *paging.Controller
// satisfies it.
type Pager interface {
	LoadMore()
	Refresh()
	UpdateFilter(f model.Filter)
	Subscribe() <-chan paging.Snapshot
}

// Commands are the side effects the App may request. Each returns a Cmd
// whose message reports the outcome; the App never touches a store.
type Commands struct {
	ToggleSaved   func(id int64) tea.Cmd
	LoadSaved     func() tea.Cmd
	LoadAnalytics func() tea.Cmd
}

// NewCommands builds Commands over a record store and a saved-state client.
// events may be nil.
func NewCommands(st remote.Store, sc saved.Client, events *otel.Logger) Commands {
	return Commands{
		ToggleSaved: func(id int64) tea.Cmd {
			return func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
				defer cancel()
				out, err := saved.Toggle(ctx, sc, id)
				if err == nil && out.Changed {
					kind := otel.KindSave
					if !out.Saved {
						kind = otel.KindUnsave
					}
					events.Emit(otel.Event{Level: otel.LevelInfo, Kind: kind, Comp: "ui", Count: 1, Msg: strconv.FormatInt(id, 10)})
				}
				return SavedToggled{ID: id, Outcome: out, Err: err}
			}
		},
		LoadSaved: func() tea.Cmd {
			return func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
				defer cancel()
				ideas, err := analytics.SavedIdeas(ctx, st, sc)
				if err != nil {
					return SavedLoaded{Err: err}
				}
				ids := make(map[int64]bool, len(ideas))
				for _, idea := range ideas {
					ids[idea.ID] = true
				}
				return SavedLoaded{Ideas: ideas, IDs: ids}
			}
		},
		LoadAnalytics: func() tea.Cmd {
			return func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
				defer cancel()
				counts, err := analytics.LoadCounts(ctx, st, sc)
				if err != nil {
					return AnalyticsLoaded{Err: err}
				}
				summary, err := analytics.Load(ctx, st, sc)
				return AnalyticsLoaded{Counts: counts, Summary: summary, Err: err}
			}
		},
	}
}

// listenSnapshots waits for the next snapshot. A closed channel ends the
// subscription and yields no message.
func listenSnapshots(ch <-chan paging.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg(snap)
	}
}
