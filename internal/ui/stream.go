package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/ideadeck/internal/model"
)

// categoryColWidth is the fixed width of the category badge text.
const categoryColWidth = 11

// RenderList renders idea rows, scrolled so the cursor stays visible.
// saved may be nil.
func RenderList(ideas []model.Idea, cursor int, saved map[int64]bool, width, height int) string {
	if height < 1 {
		height = 1
	}
	offset := calcScrollOffset(len(ideas), cursor, height)

	var b strings.Builder
	for i := offset; i < len(ideas) && i-offset < height; i++ {
		b.WriteString(renderIdeaLine(ideas[i], i == cursor, saved[ideas[i].ID], width))
		b.WriteString("\n")
	}
	return b.String()
}

// calcScrollOffset returns the first visible row such that cursor fits in
// a window of availableHeight rows.
func calcScrollOffset(n, cursor, availableHeight int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		cursor = n - 1
	}
	if cursor >= availableHeight {
		return cursor - availableHeight + 1
	}
	return 0
}

// renderIdeaLine renders: [category] title .... ▲votes r/sub ★
func renderIdeaLine(idea model.Idea, selected, saved bool, width int) string {
	cat := idea.Category
	if cat == "" {
		cat = "-"
	}
	badge := CategoryBadge.Render(padRunes(truncateRunes(cat, categoryColWidth), categoryColWidth))

	votes := fmt.Sprintf("▲%d", idea.UpvoteCount())
	sub := idea.Subreddit()
	mark := " "
	if saved {
		mark = "★"
	}
	meta := Upvotes.Render(votes) + " " + Subreddit.Render(truncateRunes(sub, 20)) + " " + SavedMark.Render(mark)
	metaWidth := lipgloss.Width(meta)

	titleWidth := width - lipgloss.Width(badge) - metaWidth - 4
	if titleWidth < 20 {
		titleWidth = 20
	}
	title := truncateRunes(idea.Title, titleWidth)

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	styledTitle := style.Render(padRunes(title, titleWidth))
	return badge + styledTitle + " " + meta
}

// renderDetail renders the detail pane for one idea.
func renderDetail(idea model.Idea, saved bool, width int) string {
	inner := width - 4
	if inner < 20 {
		inner = 20
	}

	field := func(label, value string) string {
		if value == "" {
			value = "-"
		}
		return DetailLabel.Render(label) + value
	}

	lines := []string{
		DetailTitle.Render(idea.Title),
		"",
		field("Category", idea.Category),
		field("Upvotes", fmt.Sprintf("%d", idea.UpvoteCount())),
		field("Subreddit", idea.Subreddit()),
	}
	if idea.SubredditSubscribers != nil {
		lines = append(lines, field("Subscribers", fmt.Sprintf("%d", *idea.SubredditSubscribers)))
	}
	if posted, ok := idea.Posted(); ok {
		lines = append(lines, field("Posted", posted.Local().Format("Jan 2, 2006 15:04")+" ("+formatAgeShort(posted)+")"))
	}
	lines = append(lines, field("Link", idea.Link()))
	if saved {
		lines = append(lines, field("Saved", SavedMark.Render("★ yes")))
	}
	lines = append(lines, "", lipgloss.NewStyle().Width(inner).Render(idea.Description))
	if idea.OriginalPost != nil && *idea.OriginalPost != "" && *idea.OriginalPost != idea.Description {
		lines = append(lines, "", StatusBarText.Render("Original post"), lipgloss.NewStyle().Width(inner).Render(*idea.OriginalPost))
	}

	return DetailPanel.Width(inner).Render(strings.Join(lines, "\n"))
}

func formatAgeShort(t time.Time) string {
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

// truncateRunes shortens s to max runes, ending in "..." when cut.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func padRunes(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// RenderStatusBar renders the bottom bar: position text on the left,
// key hints on the right.
func RenderStatusBar(left string, hints []string, width int) string {
	keyHints := strings.Join(hints, " ")
	padding := width - lipgloss.Width(left) - lipgloss.Width(keyHints) - 2
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + keyHints)
}

func hint(k, label string) string {
	return StatusBarKey.Render(k) + StatusBarText.Render(":"+label)
}

// RenderFilterBar renders the search input with the active category,
// sort and the "shown of total" count.
func RenderFilterBar(input string, f model.Filter, shown int, total *int, width int) string {
	prompt := FilterBarPrompt.Render("/")
	cat := f.Category
	if cat == "" {
		cat = "all"
	}
	sort := "newest"
	if f.Sort == model.SortUpvotes {
		sort = "most upvotes"
	}
	of := "?"
	if total != nil {
		of = fmt.Sprintf("%d", *total)
	}
	meta := FilterBarCount.Render(fmt.Sprintf("  category:%s  sort:%s  %d/%s", cat, sort, shown, of))

	content := prompt + input + meta
	padding := width - lipgloss.Width(content) - 2
	if padding < 0 {
		padding = 0
	}
	return FilterBar.Width(width).Render(content + strings.Repeat(" ", padding))
}
