package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DefaultPageSize is used when a Filter leaves PageSize at zero.
const DefaultPageSize = 10

// SortKey selects the ordering of a listing. Both orders are descending.
type SortKey string

const (
	SortRecent  SortKey = "created_at"
	SortUpvotes SortKey = "upvotes"
)

// Categories offered by the filter bar, in display order.
var Categories = []string{
	"tech",
	"ecommerce",
	"saas",
	"marketplace",
	"consumer",
	"enterprise",
	"mobile",
	"other",
}

// Filter describes which ideas to list and how.
// The zero value lists everything, newest first, DefaultPageSize per page.
type Filter struct {
	Category  string  `json:"category,omitempty"`
	Subreddit string  `json:"subreddit,omitempty"`
	Search    string  `json:"search,omitempty"`
	Sort      SortKey `json:"sort,omitempty" validate:"omitempty,oneof=created_at upvotes"`
	PageSize  int     `json:"page_size,omitempty" validate:"gte=0,lte=1000"`
}

// Normalized returns f with defaults applied.
func (f Filter) Normalized() Filter {
	if f.Sort == "" {
		f.Sort = SortRecent
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	return f
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects filters the controller must never see: negative page
// sizes and unknown sort keys.
func (f Filter) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	return nil
}

// Describe renders a short summary for status lines, e.g. `saas · most upvotes · "crm"`.
func (f Filter) Describe() string {
	f = f.Normalized()
	s := "all"
	if f.Category != "" {
		s = f.Category
	}
	if f.Subreddit != "" {
		s += " · " + f.Subreddit
	}
	if f.Sort == SortUpvotes {
		s += " · most upvotes"
	} else {
		s += " · newest"
	}
	if f.Search != "" {
		s += fmt.Sprintf(" · %q", f.Search)
	}
	return s
}
