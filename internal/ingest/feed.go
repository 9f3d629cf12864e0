// Package ingest harvests business ideas from subreddit RSS feeds into the
// local store.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/ideadeck/internal/logging"
	"github.com/abelbrown/ideadeck/internal/model"
)

const userAgent = "IdeaDeck/" + logging.Version + " (https://github.com/abelbrown/ideadeck)"

// descriptionLimit caps the summary kept for a listing row.
const descriptionLimit = 500

// originalPostLimit caps the raw post body.
const originalPostLimit = 4000

// FeedFetcher retrieves ideas from one RSS or Atom feed.
type FeedFetcher struct {
	client *http.Client
}

// NewFeedFetcher creates a FeedFetcher with the given HTTP client timeout.
func NewFeedFetcher(timeout time.Duration) *FeedFetcher {
	return &FeedFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves and converts the items of src. It does not store them.
func (f *FeedFetcher) Fetch(ctx context.Context, src model.Source) ([]model.Idea, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	now := time.Now()
	ideas := make([]model.Idea, 0, len(feed.Items))
	for _, item := range feed.Items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		ideas = append(ideas, convertFeedItem(item, src, now))
	}
	return ideas, nil
}

// convertFeedItem maps a feed entry onto an Idea. Feeds carry no vote or
// subscriber counts, so those stay unknown.
func convertFeedItem(item *gofeed.Item, src model.Source, fetched time.Time) model.Idea {
	published := fetched
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	body = stripHTML(body)

	summary := stripHTML(item.Description)
	if summary == "" {
		summary = body
	}

	idea := model.Idea{
		Title:         strings.TrimSpace(item.Title),
		Description:   truncate(summary, descriptionLimit),
		Category:      src.Category,
		SubredditName: model.StringPtr(src.Name),
		PostDate:      model.StringPtr(model.FormatTimestamp(published)),
		CreatedAt:     model.FormatTimestamp(fetched),
	}
	if link := itemLink(item); link != "" {
		idea.URL = model.StringPtr(link)
	}
	if body != "" {
		idea.OriginalPost = model.StringPtr(truncate(body, originalPostLimit))
	}
	return idea
}

// itemLink prefers the entry link, then the GUID when it looks like a URL.
func itemLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	if strings.HasPrefix(item.GUID, "http") {
		return item.GUID
	}
	return ""
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

var whitespaceRe = regexp.MustCompile(`\s+`)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ",
)

// stripHTML removes tags, decodes the common entities and collapses whitespace.
func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
