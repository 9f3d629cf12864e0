package ingest

import (
	"strings"
	"time"

	"github.com/abelbrown/ideadeck/internal/model"
)

// maxPostAge drops feed entries older than this before they are stored.
const maxPostAge = 90 * 24 * time.Hour

// titleTags are flair-style prefixes posters put in front of the same idea.
var titleTags = []string{
	"[idea]",
	"[discussion]",
	"[question]",
	"idea:",
	"startup idea:",
	"business idea:",
}

// ByAge removes ideas posted before now-maxAge. Ideas without a post date
// are kept.
func ByAge(ideas []model.Idea, maxAge time.Duration, now time.Time) []model.Idea {
	cutoff := now.Add(-maxAge)
	result := make([]model.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if posted, ok := idea.Posted(); ok && posted.Before(cutoff) {
			continue
		}
		result = append(result, idea)
	}
	return result
}

// normalizeTitle lowercases a title and removes one flair prefix.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(strings.TrimSpace(title))
	for _, tag := range titleTags {
		if strings.HasPrefix(normalized, tag) {
			normalized = strings.TrimSpace(strings.TrimPrefix(normalized, tag))
			break
		}
	}
	return normalized
}

// Dedup removes ideas repeating an earlier URL or normalized title within
// one batch. First occurrence wins.
func Dedup(ideas []model.Idea) []model.Idea {
	seenURLs := make(map[string]bool)
	seenTitles := make(map[string]bool)
	result := make([]model.Idea, 0, len(ideas))

	for _, idea := range ideas {
		link := idea.Link()
		if link != "" && seenURLs[link] {
			continue
		}
		title := normalizeTitle(idea.Title)
		if title != "" && seenTitles[title] {
			continue
		}
		if link != "" {
			seenURLs[link] = true
		}
		if title != "" {
			seenTitles[title] = true
		}
		result = append(result, idea)
	}
	return result
}
