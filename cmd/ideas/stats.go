package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/ideadeck/internal/analytics"
	"github.com/abelbrown/ideadeck/internal/store"
)

func newStatsCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Totals and the saved-idea breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, b, err := openBackend(gf)
			if err != nil {
				return err
			}
			defer b.Close()

			var (
				counts  analytics.Counts
				summary analytics.Summary
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				counts, err = analytics.LoadCounts(ctx, b.Store, b.Saved)
				return err
			})
			g.Go(func() error {
				var err error
				summary, err = analytics.Load(ctx, b.Store, b.Saved)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Backend:        %s\n", b.Name)
			renderStats(w, counts, summary)

			if b.Local != nil {
				feeds, err := b.Local.FeedStatuses()
				if err != nil {
					return err
				}
				renderFeeds(w, feeds)
			}
			return nil
		},
	}
}

func renderStats(w io.Writer, c analytics.Counts, s analytics.Summary) {
	fmt.Fprintf(w, "Ideas:          %d\n", c.TotalIdeas)
	fmt.Fprintf(w, "Saved:          %d\n", c.Saved)
	fmt.Fprintf(w, "Avg upvotes:    %d\n", s.AverageUpvotes)
	fmt.Fprintf(w, "Top category:   %s (%d)\n", s.TopCategory.Name, s.TopCategory.Count)

	if len(s.Categories) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Saved by category:")
	for _, cat := range s.Categories {
		share := cat.Share(s.TotalSaved)
		fmt.Fprintf(w, "  %-14s %s %d (%d%%)\n", cat.Name, strings.Repeat("█", share/5), cat.Count, share)
	}
}

func renderFeeds(w io.Writer, feeds []store.FeedStatus) {
	if len(feeds) == 0 {
		fmt.Fprintln(w, "\nNo feeds harvested yet. Run 'ideas seed'.")
		return
	}
	fmt.Fprintln(w)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Feed", "Last fetched", "Ideas", "Last error"})
	for _, f := range feeds {
		t.AppendRow(table.Row{f.Name, f.LastFetched.Local().Format("2006-01-02 15:04"), f.IdeaCount, f.LastError})
	}
	t.Render()
}
