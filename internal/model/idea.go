// Package model provides the domain types shared by every layer of IdeaDeck.
//
// Records are treated as immutable once fetched: the paging controller only
// appends or replaces whole slices, it never edits an Idea in place.
package model

import "time"

// Idea is one business idea record as served by the remote store.
// JSON tags match the business_ideas table columns.
type Idea struct {
	ID                   int64   `json:"id"`
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	Category             string  `json:"category"`
	Upvotes              *int    `json:"upvotes"`               // nil = unknown
	SubredditName        *string `json:"subreddit_name"`        // nil = unknown
	SubredditSubscribers *int    `json:"subreddit_subscribers"` // nil = unknown
	PostDate             *string `json:"post_date"`             // ISO-8601
	URL                  *string `json:"url"`
	OriginalPost         *string `json:"original_post"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

// UpvoteCount returns the upvote count, treating unknown as zero.
func (i Idea) UpvoteCount() int {
	if i.Upvotes == nil {
		return 0
	}
	return *i.Upvotes
}

// Subreddit returns the source community name or "" when unknown.
func (i Idea) Subreddit() string {
	if i.SubredditName == nil {
		return ""
	}
	return *i.SubredditName
}

// Link returns the external URL or "" when absent.
func (i Idea) Link() string {
	if i.URL == nil {
		return ""
	}
	return *i.URL
}

// Posted parses PostDate. ok is false when the date is missing or malformed.
func (i Idea) Posted() (t time.Time, ok bool) {
	if i.PostDate == nil || *i.PostDate == "" {
		return time.Time{}, false
	}
	return parseTimestamp(*i.PostDate)
}

// Created parses CreatedAt.
func (i Idea) Created() (time.Time, bool) {
	return parseTimestamp(i.CreatedAt)
}

// timestampLayouts are the formats seen from PostgREST and from SQLite.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimestampLayout has fixed-width fractions so stored timestamps sort as text.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTimestamp renders t the way the store writes timestamps.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// IntPtr and StringPtr are small helpers for building nullable fields.
func IntPtr(v int) *int { return &v }

func StringPtr(v string) *string { return &v }
