package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/ideadeck/internal/analytics"
	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/otel"
	"github.com/abelbrown/ideadeck/internal/paging"
	"github.com/abelbrown/ideadeck/internal/saved"
)

// Tab is a top-level screen.
type Tab int

const (
	TabDiscover Tab = iota
	TabSaved
	TabAnalytics
)

var tabNames = []string{"Discover", "Saved", "Analytics"}

// errSignIn replaces saved.ErrNoIdentity in the error bar.
var errSignIn = errors.New("sign in to save ideas (set SUPABASE_ACCESS_TOKEN)")

// Options configures an App.
type Options struct {
	Filter   model.Filter  // initial Discover filter
	Debounce time.Duration // search idle time before the filter applies
	Events   *otel.Logger
	Ring     *otel.RingBuffer // backs the debug overlay; nil disables it
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold a store. Listing state arrives as snapshots
// from the Pager; everything else arrives as messages from Commands.
type App struct {
	pager  Pager
	cmds   Commands
	snaps  <-chan paging.Snapshot
	events *otel.Logger
	ring   *otel.RingBuffer

	tab    Tab
	snap   paging.Snapshot
	filter model.Filter
	cursor int
	detail bool

	search      textinput.Model
	debounce    time.Duration
	debounceSeq int

	savedIDs     map[int64]bool
	savedIdeas   []model.Idea
	savedCursor  int
	savedLoading bool

	counts           analytics.Counts
	summary          analytics.Summary
	analyticsLoading bool
	analyticsStale   bool

	spinner   spinner.Model
	err       error // transient; cleared on the next key press
	status    string
	showDebug bool
	width     int
	height    int
	ready     bool
}

// NewApp creates an App rendering pager and requesting side effects
// through cmds.
func NewApp(pager Pager, cmds Commands, opts Options) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SavedMark

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "search ideas"
	ti.CharLimit = 120
	ti.SetValue(opts.Filter.Search)

	var snaps <-chan paging.Snapshot
	if pager != nil {
		snaps = pager.Subscribe()
	}

	return App{
		pager:          pager,
		cmds:           cmds,
		snaps:          snaps,
		events:         opts.Events,
		ring:           opts.Ring,
		filter:         opts.Filter.Normalized(),
		search:         ti,
		debounce:       opts.Debounce,
		savedIDs:       make(map[int64]bool),
		spinner:        s,
		analyticsStale: true,
	}
}

// Init starts the spinner, the snapshot subscription and the saved-set load.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick, listenSnapshots(a.snaps)}
	if a.cmds.LoadSaved != nil {
		cmds = append(cmds, a.cmds.LoadSaved())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	otel.TraceMsg(a.events, msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.search.Width = msg.Width / 2
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case SnapshotMsg:
		a.snap = paging.Snapshot(msg)
		if a.cursor >= len(a.snap.Records) {
			a.cursor = max(len(a.snap.Records)-1, 0)
		}
		if len(a.snap.Records) == 0 {
			a.detail = false
		}
		return a, listenSnapshots(a.snaps)

	case debounceMsg:
		if msg.seq != a.debounceSeq {
			return a, nil
		}
		a.applySearch()
		return a, nil

	case SavedToggled:
		if msg.Err != nil {
			a.err = msg.Err
			if errors.Is(msg.Err, saved.ErrNoIdentity) {
				a.err = errSignIn
			}
			return a, nil
		}
		if msg.Outcome.Saved {
			a.savedIDs[msg.ID] = true
			a.status = "Saved"
		} else {
			delete(a.savedIDs, msg.ID)
			a.savedIdeas = removeIdea(a.savedIdeas, msg.ID)
			if a.savedCursor >= len(a.savedIdeas) {
				a.savedCursor = max(len(a.savedIdeas)-1, 0)
			}
			a.status = "Removed from saved"
		}
		a.analyticsStale = true
		return a, nil

	case SavedLoaded:
		a.savedLoading = false
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.savedIdeas = msg.Ideas
		a.savedIDs = msg.IDs
		if a.savedIDs == nil {
			a.savedIDs = make(map[int64]bool)
		}
		if a.savedCursor >= len(a.savedIdeas) {
			a.savedCursor = max(len(a.savedIdeas)-1, 0)
		}
		return a, nil

	case AnalyticsLoaded:
		a.analyticsLoading = false
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.counts = msg.Counts
		a.summary = msg.Summary
		a.analyticsStale = false
		return a, nil

	case HarvestComplete:
		switch {
		case msg.Err != nil:
			a.status = fmt.Sprintf("%s: %v", msg.Source, msg.Err)
		case msg.NewIdeas > 0:
			a.status = fmt.Sprintf("%s: %d new ideas, press r to refresh", msg.Source, msg.NewIdeas)
			a.analyticsStale = true
		}
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.search.Focused() {
		return a.handleSearchKey(msg)
	}

	// Clear any transient error or status on key press
	a.err = nil
	a.status = ""

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Debug):
		if a.ring != nil {
			a.showDebug = !a.showDebug
		}
		return a, nil
	case key.Matches(msg, keys.NextTab):
		return a.switchTab((a.tab + 1) % Tab(len(tabNames)))
	case key.Matches(msg, keys.Discover):
		return a.switchTab(TabDiscover)
	case key.Matches(msg, keys.Saved):
		return a.switchTab(TabSaved)
	case key.Matches(msg, keys.Analytics):
		return a.switchTab(TabAnalytics)
	}

	switch a.tab {
	case TabDiscover:
		return a.handleDiscoverKey(msg)
	case TabSaved:
		return a.handleSavedKey(msg)
	case TabAnalytics:
		if key.Matches(msg, keys.Refresh) {
			return a.loadAnalytics()
		}
	}
	return a, nil
}

func (a App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}
	if key.Matches(msg, keys.Blur) {
		a.search.Blur()
		a.debounceSeq++ // drop any pending tick
		a.applySearch()
		return a, nil
	}

	prev := a.search.Value()
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	if a.search.Value() == prev {
		return a, cmd
	}

	a.debounceSeq++
	if a.debounce <= 0 {
		a.applySearch()
		return a, cmd
	}
	seq := a.debounceSeq
	tick := tea.Tick(a.debounce, func(time.Time) tea.Msg { return debounceMsg{seq: seq} })
	return a, tea.Batch(cmd, tick)
}

func (a App) handleDiscoverKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	records := a.snap.Records

	switch {
	case a.detail && key.Matches(msg, keys.Detail), a.detail && msg.Type == tea.KeyEsc:
		a.detail = false

	case key.Matches(msg, keys.Down):
		if a.cursor < len(records)-1 {
			a.cursor++
		}
		a.maybeLoadMore()

	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, keys.Top):
		a.cursor = 0

	case key.Matches(msg, keys.Bottom):
		a.cursor = max(len(records)-1, 0)
		a.maybeLoadMore()

	case key.Matches(msg, keys.Search):
		a.detail = false
		return a, a.search.Focus()

	case key.Matches(msg, keys.Category):
		a.filter.Category = nextCategory(a.filter.Category)
		a.applyFilter()

	case key.Matches(msg, keys.Sort):
		if a.filter.Sort == model.SortUpvotes {
			a.filter.Sort = model.SortRecent
		} else {
			a.filter.Sort = model.SortUpvotes
		}
		a.applyFilter()

	case key.Matches(msg, keys.Detail):
		if len(records) > 0 {
			a.detail = true
		}

	case key.Matches(msg, keys.Save):
		if a.cursor < len(records) && a.cmds.ToggleSaved != nil {
			return a, a.cmds.ToggleSaved(records[a.cursor].ID)
		}

	case key.Matches(msg, keys.Refresh):
		a.cursor = 0
		a.detail = false
		if a.pager != nil {
			a.pager.Refresh()
		}

	case key.Matches(msg, keys.More):
		if a.pager != nil {
			a.pager.LoadMore()
		}
	}
	return a, nil
}

func (a App) handleSavedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case a.detail && key.Matches(msg, keys.Detail), a.detail && msg.Type == tea.KeyEsc:
		a.detail = false
	case key.Matches(msg, keys.Down):
		if a.savedCursor < len(a.savedIdeas)-1 {
			a.savedCursor++
		}
	case key.Matches(msg, keys.Up):
		if a.savedCursor > 0 {
			a.savedCursor--
		}
	case key.Matches(msg, keys.Top):
		a.savedCursor = 0
	case key.Matches(msg, keys.Bottom):
		a.savedCursor = max(len(a.savedIdeas)-1, 0)
	case key.Matches(msg, keys.Detail):
		if len(a.savedIdeas) > 0 {
			a.detail = true
		}
	case key.Matches(msg, keys.Save):
		if a.savedCursor < len(a.savedIdeas) && a.cmds.ToggleSaved != nil {
			return a, a.cmds.ToggleSaved(a.savedIdeas[a.savedCursor].ID)
		}
	case key.Matches(msg, keys.Refresh):
		return a.loadSaved()
	}
	return a, nil
}

func (a App) switchTab(t Tab) (tea.Model, tea.Cmd) {
	if t == a.tab {
		return a, nil
	}
	a.tab = t
	a.detail = false
	switch t {
	case TabSaved:
		return a.loadSaved()
	case TabAnalytics:
		if a.analyticsStale {
			return a.loadAnalytics()
		}
	}
	return a, nil
}

func (a App) loadSaved() (tea.Model, tea.Cmd) {
	if a.cmds.LoadSaved == nil {
		return a, nil
	}
	a.savedLoading = true
	return a, a.cmds.LoadSaved()
}

func (a App) loadAnalytics() (tea.Model, tea.Cmd) {
	if a.cmds.LoadAnalytics == nil {
		return a, nil
	}
	a.analyticsLoading = true
	return a, a.cmds.LoadAnalytics()
}

// maybeLoadMore asks for the next page once the cursor sits on the last row.
func (a *App) maybeLoadMore() {
	n := len(a.snap.Records)
	if a.pager == nil || n == 0 || a.cursor < n-1 {
		return
	}
	if a.snap.HasMore && !a.snap.Loading {
		a.pager.LoadMore()
	}
}

func (a *App) applySearch() {
	term := strings.TrimSpace(a.search.Value())
	if term == a.filter.Search {
		return
	}
	a.filter.Search = term
	a.applyFilter()
}

func (a *App) applyFilter() {
	a.cursor = 0
	a.detail = false
	if a.pager != nil {
		a.pager.UpdateFilter(a.filter)
	}
}

// nextCategory cycles "" -> model.Categories... -> "".
func nextCategory(current string) string {
	if current == "" {
		return model.Categories[0]
	}
	for i, c := range model.Categories {
		if c == current && i+1 < len(model.Categories) {
			return model.Categories[i+1]
		}
	}
	return ""
}

func removeIdea(ideas []model.Idea, id int64) []model.Idea {
	out := ideas[:0:0]
	for _, idea := range ideas {
		if idea.ID != id {
			out = append(out, idea)
		}
	}
	return out
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	header := a.renderHeader()
	if a.showDebug {
		return header + "\n" + debugOverlay(a.ring, a.width, a.height-1)
	}

	var errorBar string
	if err := a.visibleError(); err != nil {
		errorBar = ErrorStyle.Width(a.width).Render("Error: "+err.Error()+a.errorHint()) + "\n"
	}

	// header + status bar, plus the error bar when present
	contentHeight := a.height - 2
	if errorBar != "" {
		contentHeight--
	}

	var body string
	switch a.tab {
	case TabDiscover:
		body = a.renderDiscover(contentHeight)
	case TabSaved:
		body = a.renderSaved(contentHeight)
	case TabAnalytics:
		body = a.renderAnalytics()
	}

	// Pad the body so the status bar stays at the bottom.
	if lines := strings.Count(body, "\n"); lines < contentHeight {
		body += strings.Repeat("\n", contentHeight-lines)
	}

	return header + "\n" + body + errorBar + a.renderStatusBar()
}

// visibleError prefers the transient error over the listing's error.
func (a App) visibleError() error {
	if a.err != nil {
		return a.err
	}
	if a.tab == TabDiscover && a.snap.Err != nil {
		return a.snap.Err
	}
	return nil
}

func (a App) errorHint() string {
	if a.err == nil && a.snap.Err != nil {
		return " (press r to retry)"
	}
	return " (press any key to dismiss)"
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == a.tab {
			tabs = append(tabs, ActiveTab.Render(label))
		} else {
			tabs = append(tabs, InactiveTab.Render(label))
		}
	}
	left := "IDEADECK " + strings.Join(tabs, "")

	right := ""
	if a.busy() {
		right = a.spinner.View() + " loading"
	}
	padding := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 0 {
		padding = 0
	}
	return Header.Width(a.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (a App) busy() bool {
	switch a.tab {
	case TabSaved:
		return a.savedLoading
	case TabAnalytics:
		return a.analyticsLoading
	}
	return a.snap.Loading
}

func (a App) renderDiscover(height int) string {
	input := a.search.View()
	if !a.search.Focused() && a.search.Value() == "" {
		input = StatusBarText.Render("search (press /)")
	}
	bar := RenderFilterBar(input, a.filter, len(a.snap.Records), a.snap.Total, a.width)
	height--

	records := a.snap.Records
	switch {
	case len(records) == 0 && a.snap.Loading:
		return bar + "\n" + HelpStyle.Render(a.spinner.View()+" Loading ideas...")
	case a.snap.Empty() && a.snap.Page > 0:
		return bar + "\n" + HelpStyle.Render("No ideas found")
	case len(records) == 0:
		return bar + "\n"
	}

	if a.detail && a.cursor < len(records) {
		idea := records[a.cursor]
		return bar + "\n" + renderDetail(idea, a.savedIDs[idea.ID], a.width)
	}

	list := RenderList(records, a.cursor, a.savedIDs, a.width, height)
	if a.snap.Loading && height > len(records) {
		list += HelpStyle.Padding(0, 2).Render(a.spinner.View() + " loading more...")
	}
	return bar + "\n" + list
}

func (a App) renderSaved(height int) string {
	switch {
	case len(a.savedIdeas) == 0 && a.savedLoading:
		return HelpStyle.Render(a.spinner.View() + " Loading saved ideas...")
	case len(a.savedIdeas) == 0:
		return HelpStyle.Render("No saved ideas yet. Press s on an idea in Discover to save it.")
	}
	if a.detail && a.savedCursor < len(a.savedIdeas) {
		return renderDetail(a.savedIdeas[a.savedCursor], true, a.width)
	}
	return RenderList(a.savedIdeas, a.savedCursor, a.savedIDs, a.width, height)
}

func (a App) renderStatusBar() string {
	var left string
	switch a.tab {
	case TabDiscover:
		n := len(a.snap.Records)
		switch {
		case a.status != "":
			left = a.status
		case n == 0:
			left = a.filter.Describe()
		default:
			left = fmt.Sprintf("%d/%d · page %d", a.cursor+1, n, a.snap.Page)
			if !a.snap.HasMore && !a.snap.Loading {
				left += " · end"
			}
		}
		hints := []string{
			hint("j/k", "nav"), hint("/", "search"), hint("c", "category"), hint("o", "sort"),
			hint("s", "save"), hint("enter", "detail"), hint("r", "refresh"), hint("q", "quit"),
		}
		if a.search.Focused() {
			hints = []string{hint("enter/esc", "done")}
		}
		return RenderStatusBar(left, hints, a.width)

	case TabSaved:
		left = fmt.Sprintf("%d saved", len(a.savedIdeas))
		if a.status != "" {
			left = a.status
		}
		return RenderStatusBar(left, []string{hint("j/k", "nav"), hint("s", "unsave"), hint("enter", "detail"), hint("r", "reload"), hint("q", "quit")}, a.width)

	default:
		return RenderStatusBar(a.status, []string{hint("r", "reload"), hint("tab", "next"), hint("q", "quit")}, a.width)
	}
}

// ActiveTab returns the active tab (for testing).
func (a App) ActiveTab() Tab {
	return a.tab
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Filter returns the filter the Discover tab last applied.
func (a App) Filter() model.Filter {
	return a.filter
}
