package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/ideadeck/internal/analytics"
)

// barWidth is the length of a 100% bar in the category breakdown.
const barWidth = 30

func (a App) renderAnalytics() string {
	if a.analyticsLoading && a.analyticsStale {
		return HelpStyle.Render(a.spinner.View() + " Loading analytics...")
	}
	return renderDashboard(a.counts, a.summary, a.width)
}

// renderDashboard renders the stat cards and the category breakdown.
func renderDashboard(c analytics.Counts, s analytics.Summary, width int) string {
	card := func(label string, value string) string {
		return StatCard.Render(StatValue.Render(value) + "\n" + StatusBarText.Render(label))
	}
	top := s.TopCategory.Name
	if s.TopCategory.Count > 0 {
		top = fmt.Sprintf("%s (%d)", top, s.TopCategory.Count)
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("ideas", fmt.Sprintf("%d", c.TotalIdeas)),
		card("saved", fmt.Sprintf("%d", c.Saved)),
		card("avg upvotes", fmt.Sprintf("%d", s.AverageUpvotes)),
		card("top category", top),
	)

	var b strings.Builder
	b.WriteString(cards)
	b.WriteString("\n\n")
	b.WriteString(DebugHeaderStyle.Render("Saved by category"))
	b.WriteString("\n")

	if len(s.Categories) == 0 {
		b.WriteString(HelpStyle.Render("Save some ideas to see a breakdown."))
		return b.String()
	}

	nameWidth := categoryColWidth + 1
	for _, cat := range s.Categories {
		share := cat.Share(s.TotalSaved)
		n := share * barWidth / 100
		if n == 0 && cat.Count > 0 {
			n = 1
		}
		line := "  " + padRunes(truncateRunes(cat.Name, categoryColWidth), nameWidth) +
			Bar.Render(strings.Repeat("█", n)) +
			fmt.Sprintf(" %d (%d%%)", cat.Count, share)
		b.WriteString(truncateANSIWidth(line, width))
		b.WriteString("\n")
	}
	return b.String()
}

// truncateANSIWidth clips a styled line to width cells.
func truncateANSIWidth(line string, width int) string {
	if width <= 0 || lipgloss.Width(line) <= width {
		return line
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}
