package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/abelbrown/ideadeck/internal/fetch"
	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/paging"
)

type listOptions struct {
	category  string
	subreddit string
	search    string
	sort      string
	pageSize  int
	pages     int
	timeout   time.Duration
}

func newListCommand(gf *globalFlags) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Page through ideas",
		Long: `List ideas through the same pagination controller the TUI uses.
Each extra page is requested with LoadMore until --pages is reached or the
listing is exhausted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, b, err := openBackend(gf)
			if err != nil {
				return err
			}
			defer b.Close()

			f := cfg.DefaultFilter()
			f.Category = opts.category
			f.Subreddit = opts.subreddit
			f.Search = opts.search
			if opts.sort != "" {
				f.Sort = model.SortKey(opts.sort)
			}
			if opts.pageSize > 0 {
				f.PageSize = opts.pageSize
			}
			if err := f.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			c := paging.New(fetch.New(b.Store, nil), &f, nil)
			defer c.Close()

			snap, err := collectPages(ctx, c, opts.pages)
			if err != nil {
				return err
			}
			renderIdeas(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Only this category")
	cmd.Flags().StringVar(&opts.subreddit, "subreddit", "", "Only this subreddit, e.g. r/startups")
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "Case-insensitive title/description search")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "Sort key: created_at or upvotes")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "Records per page (default from config)")
	cmd.Flags().IntVarP(&opts.pages, "pages", "n", 1, "Number of pages to load")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "Give up after this long")
	return cmd
}

// pager is the part of the controller collectPages drives.
type pager interface {
	LoadMore()
	Subscribe() <-chan paging.Snapshot
}

// collectPages waits for page 1 to settle, then requests more until pages
// have loaded or nothing is left.
func collectPages(ctx context.Context, c pager, pages int) (paging.Snapshot, error) {
	ch := c.Subscribe()
	snap, err := waitSettled(ctx, ch, 1)
	if err != nil {
		return snap, err
	}
	for snap.Page < pages && snap.HasMore {
		c.LoadMore()
		if snap, err = waitSettled(ctx, ch, snap.Page+1); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// waitSettled returns the first snapshot at or past page with no fetch in
// flight. A fetch error is returned as the error.
func waitSettled(ctx context.Context, ch <-chan paging.Snapshot, page int) (paging.Snapshot, error) {
	var last paging.Snapshot
	for {
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("waiting for page %d: %w", page, ctx.Err())
		case snap, ok := <-ch:
			if !ok {
				return last, errors.New("controller closed")
			}
			last = snap
			if snap.Loading || snap.Page < page {
				continue
			}
			if snap.Err != nil {
				return snap, snap.Err
			}
			return snap, nil
		}
	}
}

func renderIdeas(w io.Writer, snap paging.Snapshot) {
	if len(snap.Records) == 0 {
		fmt.Fprintln(w, "No ideas found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Category", "Upvotes", "Subreddit", "Title", "Created"})
	for _, idea := range snap.Records {
		created := idea.CreatedAt
		if ts, ok := idea.Created(); ok {
			created = ts.Local().Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{
			idea.ID,
			idea.Category,
			idea.UpvoteCount(),
			idea.Subreddit(),
			truncate(idea.Title, 60),
			created,
		})
	}

	total := "?"
	if snap.Total != nil {
		total = fmt.Sprintf("%d", *snap.Total)
	}
	more := ""
	if snap.HasMore {
		more = ", more available"
	}
	t.Render()
	fmt.Fprintf(w, "%d of %s · %d page(s)%s\n", len(snap.Records), total, snap.Page, more)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
