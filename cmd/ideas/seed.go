package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/abelbrown/ideadeck/internal/ingest"
)

func newSeedCommand(gf *globalFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Harvest subreddit feeds into the local database",
		Long: `Fetch every configured feed once and insert new ideas into the SQLite
store. Ideas already present (same URL) are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, b, err := openBackend(gf)
			if err != nil {
				return err
			}
			defer b.Close()
			if b.Local == nil {
				return errors.New("seed needs the sqlite backend; the remote catalog is read-only here")
			}

			h := ingest.New(b.Local, ingest.NewFeedFetcher(timeout), cfg.SourceList(), nil)
			results := h.HarvestAll(cmd.Context())

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Feed", "Fetched", "New", "Error"})
			var added, failed int
			for _, r := range results {
				errText := ""
				if r.Err != nil {
					errText = r.Err.Error()
					failed++
				}
				added += r.NewIdeas
				t.AppendRow(table.Row{r.Source, r.Fetched, r.NewIdeas, errText})
			}
			t.AppendFooter(table.Row{"total", "", added, ""})
			t.Render()

			if failed == len(results) && failed > 0 {
				return fmt.Errorf("all %d feeds failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-feed HTTP timeout")
	return cmd
}
