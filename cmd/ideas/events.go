package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelbrown/ideadeck/internal/config"
	"github.com/abelbrown/ideadeck/internal/otel"
)

type eventsOptions struct {
	path    string
	tail    int
	kind    string
	level   string
	comp    string
	attempt uint64
	rawJSON bool
}

func newEventsCommand() *cobra.Command {
	var opts eventsOptions

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent entries from the JSONL event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.path
			if path == "" {
				path = filepath.Join(config.DataDir(), "events.jsonl")
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("%w (run ideadeck first to generate events)", err)
			}
			defer f.Close()

			all, err := otel.ReadEvents(f, 0)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), filterEvents(all, opts), opts.rawJSON)
		},
	}

	cmd.Flags().StringVar(&opts.path, "file", "", "Event log path (default ~/.ideadeck/events.jsonl)")
	cmd.Flags().IntVarP(&opts.tail, "tail", "n", 50, "Number of recent events to show")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Filter by event kind prefix (e.g. 'page')")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.comp, "comp", "", "Filter by component name")
	cmd.Flags().Uint64Var(&opts.attempt, "attempt", 0, "Filter by paging attempt")
	cmd.Flags().BoolVar(&opts.rawJSON, "json", false, "Output raw JSON lines")
	return cmd
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level otel.Level) int {
	switch level {
	case otel.LevelInfo:
		return 1
	case otel.LevelWarn:
		return 2
	case otel.LevelError:
		return 3
	default:
		return 0
	}
}

// filterEvents keeps matching events, then the last opts.tail of those.
func filterEvents(events []otel.Event, opts eventsOptions) []otel.Event {
	minLevel := levelRank(otel.Level(opts.level))
	var out []otel.Event
	for _, e := range events {
		if opts.kind != "" && !strings.HasPrefix(string(e.Kind), opts.kind) {
			continue
		}
		if opts.level != "" && levelRank(e.Level) < minLevel {
			continue
		}
		if opts.comp != "" && e.Comp != opts.comp {
			continue
		}
		if opts.attempt != 0 && e.Attempt != opts.attempt {
			continue
		}
		out = append(out, e)
	}
	if opts.tail > 0 && len(out) > opts.tail {
		out = out[len(out)-opts.tail:]
	}
	return out
}

func printEvents(w io.Writer, events []otel.Event, rawJSON bool) error {
	for _, e := range events {
		if rawJSON {
			b, err := json.Marshal(e)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
			continue
		}
		fmt.Fprintln(w, formatEvent(e))
	}
	return nil
}

func formatEvent(e otel.Event) string {
	lvl := strings.ToUpper(string(e.Level))
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-6s] %-16s", e.Time.Local().Format("15:04:05.000"), lvl, e.Comp, e.Kind)}

	if e.Attempt != 0 {
		parts = append(parts, fmt.Sprintf("#%d", e.Attempt))
	}
	if e.Msg != "" {
		parts = append(parts, "- "+e.Msg)
	}
	if e.Filter != "" {
		parts = append(parts, "filter="+e.Filter)
	}
	if e.Offset != 0 {
		parts = append(parts, fmt.Sprintf("offset=%d", e.Offset))
	}
	if e.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.1fms)", e.DurMs))
	}
	if e.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", e.Count))
	}
	if e.Source != "" {
		parts = append(parts, "src="+e.Source)
	}
	if e.Err != "" {
		parts = append(parts, "err="+e.Err)
	}
	return strings.Join(parts, " ")
}
