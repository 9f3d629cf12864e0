// Package analytics computes the dashboard figures: catalogue and saved
// counts, and a breakdown of the user's saved ideas.
package analytics

import (
	"context"
	"errors"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/query"
	"github.com/abelbrown/ideadeck/internal/remote"
	"github.com/abelbrown/ideadeck/internal/saved"
)

// Uncategorized labels ideas with an empty category.
const Uncategorized = "Uncategorized"

// Counts are the headline numbers.
type Counts struct {
	TotalIdeas int
	Saved      int
}

// LoadCounts fetches the unfiltered idea count and the saved count
// concurrently. Without an identity Saved is 0.
func LoadCounts(ctx context.Context, st remote.Store, sc saved.Client) (Counts, error) {
	var c Counts
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := st.Count(ctx, query.Count(model.Filter{}))
		if err != nil {
			return err
		}
		c.TotalIdeas = n
		return nil
	})
	g.Go(func() error {
		if sc == nil {
			return nil
		}
		ids, err := sc.List(ctx)
		if errors.Is(err, saved.ErrNoIdentity) {
			return nil
		}
		if err != nil {
			return err
		}
		c.Saved = len(ids)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Counts{}, err
	}
	return c, nil
}

// CategoryCount is one row of the breakdown.
type CategoryCount struct {
	Name  string
	Count int
}

// Summary describes a set of saved ideas.
type Summary struct {
	TotalSaved     int
	AverageUpvotes int
	Categories     []CategoryCount // count desc, then name
	TopCategory    CategoryCount   // {"N/A", 0} when empty
}

// Summarize computes the breakdown of ideas. Unknown upvotes count as 0.
func Summarize(ideas []model.Idea) Summary {
	s := Summary{
		TotalSaved:  len(ideas),
		TopCategory: CategoryCount{Name: "N/A"},
	}
	if len(ideas) == 0 {
		return s
	}

	total := 0
	byName := make(map[string]int)
	for _, idea := range ideas {
		total += idea.UpvoteCount()
		name := idea.Category
		if name == "" {
			name = Uncategorized
		}
		byName[name]++
	}
	s.AverageUpvotes = int(math.Round(float64(total) / float64(len(ideas))))

	s.Categories = make([]CategoryCount, 0, len(byName))
	for name, n := range byName {
		s.Categories = append(s.Categories, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		a, b := s.Categories[i], s.Categories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	s.TopCategory = s.Categories[0]
	return s
}

// Share returns c's percentage of total, rounded.
func (c CategoryCount) Share(total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(c.Count) * 100 / float64(total)))
}

// SavedIdeas loads the records behind the identity's saved IDs, newest first.
// Without an identity it returns nothing.
func SavedIdeas(ctx context.Context, st remote.Store, sc saved.Client) ([]model.Idea, error) {
	ids, err := sc.List(ctx)
	if errors.Is(err, saved.ErrNoIdentity) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return st.Select(ctx, query.ByIDs(ids))
}

// Load returns the Summary of the identity's saved ideas.
func Load(ctx context.Context, st remote.Store, sc saved.Client) (Summary, error) {
	ideas, err := SavedIdeas(ctx, st, sc)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(ideas), nil
}
