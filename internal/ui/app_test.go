package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/ideadeck/internal/analytics"
	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/paging"
	"github.com/abelbrown/ideadeck/internal/saved"
)

// fakePager records the requests the App makes.
type fakePager struct {
	loadMore int
	refresh  int
	filters  []model.Filter
	ch       chan paging.Snapshot
}

func (p *fakePager) LoadMore()                   { p.loadMore++ }
func (p *fakePager) Refresh()                    { p.refresh++ }
func (p *fakePager) UpdateFilter(f model.Filter) { p.filters = append(p.filters, f) }
func (p *fakePager) Subscribe() <-chan paging.Snapshot {
	if p.ch == nil {
		p.ch = make(chan paging.Snapshot, 1)
	}
	return p.ch
}

// mockCmd tracks which command functions were called.
type mockCmd struct {
	toggledID     int64
	toggled       bool
	loadedSaved   int
	loadedStats   int
	savedResponse SavedLoaded
}

func (m *mockCmd) toggleSaved(id int64) tea.Cmd {
	m.toggled = true
	m.toggledID = id
	return func() tea.Msg {
		return SavedToggled{ID: id, Outcome: saved.Outcome{Saved: true, Changed: true}}
	}
}

func (m *mockCmd) loadSaved() tea.Cmd {
	m.loadedSaved++
	resp := m.savedResponse
	return func() tea.Msg { return resp }
}

func (m *mockCmd) loadAnalytics() tea.Cmd {
	m.loadedStats++
	return func() tea.Msg {
		return AnalyticsLoaded{
			Counts:  analytics.Counts{TotalIdeas: 42, Saved: 2},
			Summary: analytics.Summarize(makeIdeas(2)),
		}
	}
}

func (m *mockCmd) commands() Commands {
	return Commands{
		ToggleSaved:   m.toggleSaved,
		LoadSaved:     m.loadSaved,
		LoadAnalytics: m.loadAnalytics,
	}
}

func newTestApp(p *fakePager, m *mockCmd) App {
	return NewApp(p, m.commands(), Options{})
}

func ready(app App) App {
	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return model.(App)
}

func withSnapshot(app App, snap paging.Snapshot) App {
	model, _ := app.Update(SnapshotMsg(snap))
	return model.(App)
}

func press(app App, keys ...string) App {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		model, _ := app.Update(msg)
		app = model.(App)
	}
	return app
}

func settled(n int, hasMore bool) paging.Snapshot {
	total := n
	if hasMore {
		total = n + 10
	}
	return paging.Snapshot{
		Filter:  model.Filter{}.Normalized(),
		Records: makeIdeas(n),
		Total:   &total,
		Page:    1,
		HasMore: hasMore,
	}
}

func TestAppInit(t *testing.T) {
	mock := &mockCmd{}
	app := newTestApp(&fakePager{}, mock)

	if cmd := app.Init(); cmd == nil {
		t.Fatal("Init should return a command")
	}
	if mock.loadedSaved != 1 {
		t.Error("Init should load the saved set")
	}
}

func TestAppInitNilCommands(t *testing.T) {
	app := NewApp(nil, Commands{}, Options{})
	if cmd := app.Init(); cmd == nil {
		t.Error("Init should still start the spinner")
	}
}

func TestAppSnapshotRelistens(t *testing.T) {
	app := ready(newTestApp(&fakePager{}, &mockCmd{}))
	model, cmd := app.Update(SnapshotMsg(settled(3, false)))
	if cmd == nil {
		t.Error("a snapshot should re-arm the subscription")
	}
	if got := len(model.(App).snap.Records); got != 3 {
		t.Errorf("records = %d, want 3", got)
	}
}

func TestListenSnapshotsClosed(t *testing.T) {
	ch := make(chan paging.Snapshot)
	close(ch)
	if msg := listenSnapshots(ch)(); msg != nil {
		t.Errorf("closed channel should yield nil, got %T", msg)
	}
	if listenSnapshots(nil) != nil {
		t.Error("nil channel should yield no command")
	}
}

func TestAppNavigation(t *testing.T) {
	app := withSnapshot(ready(newTestApp(&fakePager{}, &mockCmd{})), settled(3, false))

	app = press(app, "j")
	if app.Cursor() != 1 {
		t.Errorf("j should move cursor to 1, got %d", app.Cursor())
	}
	app = press(app, "k")
	if app.Cursor() != 0 {
		t.Errorf("k should move cursor to 0, got %d", app.Cursor())
	}
	app = press(app, "k")
	if app.Cursor() != 0 {
		t.Errorf("k at top should keep cursor at 0, got %d", app.Cursor())
	}
	app = press(app, "G")
	if app.Cursor() != 2 {
		t.Errorf("G should move cursor to 2, got %d", app.Cursor())
	}
	app = press(app, "j")
	if app.Cursor() != 2 {
		t.Errorf("j at bottom should keep cursor at 2, got %d", app.Cursor())
	}
	app = press(app, "g")
	if app.Cursor() != 0 {
		t.Errorf("g should move cursor to 0, got %d", app.Cursor())
	}
	app = press(app, "down")
	if app.Cursor() != 1 {
		t.Errorf("down arrow should move cursor to 1, got %d", app.Cursor())
	}
}

func TestAppCursorClampedOnShrink(t *testing.T) {
	app := withSnapshot(ready(newTestApp(&fakePager{}, &mockCmd{})), settled(10, false))
	app = press(app, "G")
	app = withSnapshot(app, settled(4, false))
	if app.Cursor() != 3 {
		t.Errorf("cursor = %d, want clamped to 3", app.Cursor())
	}
	app = withSnapshot(app, paging.Snapshot{Page: 1})
	if app.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0 for an empty listing", app.Cursor())
	}
}

func TestAppLoadMoreAtBottom(t *testing.T) {
	pager := &fakePager{}
	app := withSnapshot(ready(newTestApp(pager, &mockCmd{})), settled(3, true))

	app = press(app, "j")
	if pager.loadMore != 0 {
		t.Fatal("LoadMore should wait for the last row")
	}
	press(app, "j")
	if pager.loadMore != 1 {
		t.Errorf("LoadMore calls = %d, want 1", pager.loadMore)
	}
}

func TestAppNoLoadMoreWhenExhaustedOrLoading(t *testing.T) {
	pager := &fakePager{}
	app := withSnapshot(ready(newTestApp(pager, &mockCmd{})), settled(3, false))
	press(app, "G")
	if pager.loadMore != 0 {
		t.Error("no LoadMore when HasMore is false")
	}

	snap := settled(3, true)
	snap.Loading = true
	app = withSnapshot(app, snap)
	press(app, "G")
	if pager.loadMore != 0 {
		t.Error("no LoadMore while a fetch is in flight")
	}
}

func TestAppExplicitLoadMore(t *testing.T) {
	pager := &fakePager{}
	app := withSnapshot(ready(newTestApp(pager, &mockCmd{})), settled(3, true))
	press(app, "m")
	if pager.loadMore != 1 {
		t.Errorf("m should request the next page, got %d calls", pager.loadMore)
	}
}

func TestAppRefresh(t *testing.T) {
	pager := &fakePager{}
	app := withSnapshot(ready(newTestApp(pager, &mockCmd{})), settled(3, false))
	app = press(app, "j", "r")
	if pager.refresh != 1 {
		t.Errorf("refresh calls = %d, want 1", pager.refresh)
	}
	if app.Cursor() != 0 {
		t.Error("refresh should reset the cursor")
	}
}

func TestAppCategoryCycle(t *testing.T) {
	pager := &fakePager{}
	app := ready(newTestApp(pager, &mockCmd{}))

	app = press(app, "c")
	if app.Filter().Category != model.Categories[0] {
		t.Errorf("category = %q, want %q", app.Filter().Category, model.Categories[0])
	}
	for range model.Categories {
		app = press(app, "c")
	}
	if app.Filter().Category != "" {
		t.Errorf("cycling past the last category should clear it, got %q", app.Filter().Category)
	}
	if len(pager.filters) != len(model.Categories)+1 {
		t.Errorf("UpdateFilter calls = %d, want %d", len(pager.filters), len(model.Categories)+1)
	}
}

func TestNextCategory(t *testing.T) {
	if got := nextCategory("no-such-category"); got != "" {
		t.Errorf("unknown category should reset, got %q", got)
	}
	if got := nextCategory(model.Categories[1]); got != model.Categories[2] {
		t.Errorf("got %q, want %q", got, model.Categories[2])
	}
}

func TestAppSortToggle(t *testing.T) {
	pager := &fakePager{}
	app := ready(newTestApp(pager, &mockCmd{}))

	app = press(app, "o")
	if app.Filter().Sort != model.SortUpvotes {
		t.Errorf("sort = %q, want upvotes", app.Filter().Sort)
	}
	app = press(app, "o")
	if app.Filter().Sort != model.SortRecent {
		t.Errorf("sort = %q, want created_at", app.Filter().Sort)
	}
	if len(pager.filters) != 2 {
		t.Errorf("UpdateFilter calls = %d, want 2", len(pager.filters))
	}
}

func TestAppSearchImmediate(t *testing.T) {
	pager := &fakePager{}
	app := ready(newTestApp(pager, &mockCmd{}))

	app = press(app, "/", "c", "r", "m")
	if !app.search.Focused() {
		t.Fatal("/ should focus the search input")
	}
	if len(pager.filters) != 3 {
		t.Fatalf("zero debounce should apply every keystroke, got %d", len(pager.filters))
	}
	if got := pager.filters[2].Search; got != "crm" {
		t.Errorf("search = %q, want crm", got)
	}

	app = press(app, "enter")
	if app.search.Focused() {
		t.Error("enter should blur the search input")
	}
	if len(pager.filters) != 3 {
		t.Error("blurring with an unchanged term should not refetch")
	}
}

func TestAppSearchKeysDoNotNavigate(t *testing.T) {
	pager := &fakePager{}
	app := withSnapshot(ready(newTestApp(pager, &mockCmd{})), settled(5, false))
	app = press(app, "/", "j", "q")
	if app.Cursor() != 0 {
		t.Error("j inside search should type, not move")
	}
	if got := app.search.Value(); got != "jq" {
		t.Errorf("search value = %q, want jq", got)
	}
}

func TestAppSearchDebounced(t *testing.T) {
	pager := &fakePager{}
	app := ready(NewApp(pager, (&mockCmd{}).commands(), Options{Debounce: 300 * time.Millisecond}))

	app = press(app, "/", "a", "i")
	if len(pager.filters) != 0 {
		t.Fatal("debounced search should not apply while typing")
	}

	// A stale tick is ignored.
	model, _ := app.Update(debounceMsg{seq: app.debounceSeq - 1})
	app = model.(App)
	if len(pager.filters) != 0 {
		t.Fatal("stale debounce tick should be ignored")
	}

	model, _ = app.Update(debounceMsg{seq: app.debounceSeq})
	app = model.(App)
	if len(pager.filters) != 1 || pager.filters[0].Search != "ai" {
		t.Fatalf("filters = %+v, want one search for ai", pager.filters)
	}
	if !app.search.Focused() {
		t.Error("applying the debounced term should keep focus")
	}
}

func TestAppSearchEscAppliesPending(t *testing.T) {
	pager := &fakePager{}
	app := ready(NewApp(pager, (&mockCmd{}).commands(), Options{Debounce: time.Second}))

	app = press(app, "/", "x", "esc")
	if len(pager.filters) != 1 || pager.filters[0].Search != "x" {
		t.Fatalf("esc should apply the pending term, got %+v", pager.filters)
	}

	// The tick armed before esc must not apply again.
	model, _ := app.Update(debounceMsg{seq: app.debounceSeq - 1})
	app = model.(App)
	if len(pager.filters) != 1 {
		t.Error("tick from before blur should be dropped")
	}
}

func TestAppToggleSaved(t *testing.T) {
	mock := &mockCmd{}
	app := withSnapshot(ready(newTestApp(&fakePager{}, mock)), settled(3, false))

	app = press(app, "j")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if cmd == nil {
		t.Fatal("s should return a command")
	}
	if !mock.toggled || mock.toggledID != 2 {
		t.Errorf("toggled id = %d, want 2", mock.toggledID)
	}

	model, _ := app.Update(cmd())
	app = model.(App)
	if !app.savedIDs[2] {
		t.Error("saved set should include the toggled idea")
	}
	if !strings.Contains(app.View(), "★") {
		t.Error("saved idea should render with the saved mark")
	}
}

func TestAppToggleSavedEmpty(t *testing.T) {
	mock := &mockCmd{}
	app := ready(newTestApp(&fakePager{}, mock))
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if cmd != nil || mock.toggled {
		t.Error("s with no records should do nothing")
	}
}

func TestAppSavedToggledNoIdentity(t *testing.T) {
	app := ready(newTestApp(&fakePager{}, &mockCmd{}))
	model, _ := app.Update(SavedToggled{ID: 1, Err: saved.ErrNoIdentity})
	app = model.(App)
	if app.err != errSignIn {
		t.Errorf("err = %v, want sign-in prompt", app.err)
	}
	if !strings.Contains(app.View(), "sign in") {
		t.Error("View should show the sign-in prompt")
	}

	app = press(app, "j")
	if app.err != nil {
		t.Error("a key press should dismiss the error")
	}
}

func TestAppUnsaveRemovesFromSavedTab(t *testing.T) {
	app := ready(newTestApp(&fakePager{}, &mockCmd{}))
	ideas := makeIdeas(3)
	model, _ := app.Update(SavedLoaded{Ideas: ideas, IDs: map[int64]bool{1: true, 2: true, 3: true}})
	app = model.(App)
	app.savedCursor = 2

	model, _ = app.Update(SavedToggled{ID: 3, Outcome: saved.Outcome{Saved: false, Changed: true}})
	app = model.(App)
	if len(app.savedIdeas) != 2 || app.savedIDs[3] {
		t.Errorf("unsaved idea should leave the saved list, got %d", len(app.savedIdeas))
	}
	if app.savedCursor != 1 {
		t.Errorf("saved cursor = %d, want 1", app.savedCursor)
	}
	if len(ideas) != 3 || ideas[2].ID != 3 {
		t.Error("removal should not mutate the loaded slice")
	}
}

func TestAppTabs(t *testing.T) {
	mock := &mockCmd{savedResponse: SavedLoaded{Ideas: makeIdeas(2), IDs: map[int64]bool{1: true, 2: true}}}
	app := ready(newTestApp(&fakePager{}, mock))

	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	app = model.(App)
	if app.ActiveTab() != TabSaved {
		t.Fatalf("tab = %d, want Saved", app.ActiveTab())
	}
	if mock.loadedSaved != 1 || cmd == nil {
		t.Fatal("switching to Saved should reload the saved list")
	}
	model, _ = app.Update(cmd())
	app = model.(App)
	if !strings.Contains(app.View(), "2 saved") {
		t.Error("Saved tab status should count the saved ideas")
	}

	model, cmd = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = model.(App)
	if app.ActiveTab() != TabAnalytics {
		t.Fatalf("tab = %d, want Analytics", app.ActiveTab())
	}
	if mock.loadedStats != 1 || cmd == nil {
		t.Fatal("first visit to Analytics should load it")
	}
	model, _ = app.Update(cmd())
	app = model.(App)
	view := app.View()
	if !strings.Contains(view, "42") || !strings.Contains(view, "Saved by category") {
		t.Errorf("Analytics view missing figures:\n%s", view)
	}

	// Revisiting without changes reuses the loaded figures.
	app = press(app, "1", "3")
	if mock.loadedStats != 1 {
		t.Errorf("analytics loads = %d, want 1", mock.loadedStats)
	}

	app = press(app, "tab")
	if app.ActiveTab() != TabDiscover {
		t.Errorf("tab should wrap to Discover, got %d", app.ActiveTab())
	}
}

func TestAppSavedChangeMarksAnalyticsStale(t *testing.T) {
	mock := &mockCmd{}
	app := ready(newTestApp(&fakePager{}, mock))
	app = press(app, "3")
	model, _ := app.Update(mock.loadAnalytics()())
	app = model.(App)
	app = press(app, "1")

	model, _ = app.Update(SavedToggled{ID: 1, Outcome: saved.Outcome{Saved: true, Changed: true}})
	app = model.(App)
	press(app, "3")
	if mock.loadedStats != 3 {
		t.Errorf("analytics loads = %d, want 3", mock.loadedStats)
	}
}

func TestAppQuit(t *testing.T) {
	app := ready(newTestApp(&fakePager{}, &mockCmd{}))
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestAppQuitCtrlCWhileSearching(t *testing.T) {
	app := press(ready(newTestApp(&fakePager{}, &mockCmd{})), "/")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit even while searching")
	}
}

func TestAppViewNotReady(t *testing.T) {
	app := newTestApp(&fakePager{}, &mockCmd{})
	if app.View() != "Loading..." {
		t.Errorf("unready View = %q", app.View())
	}
}

func TestAppViewStates(t *testing.T) {
	app := ready(newTestApp(&fakePager{}, &mockCmd{}))

	app = withSnapshot(app, paging.Snapshot{Loading: true, Page: 1, HasMore: true})
	if !strings.Contains(app.View(), "Loading ideas") {
		t.Error("initial load should show the loading text")
	}

	zero := 0
	app = withSnapshot(app, paging.Snapshot{Page: 1, Total: &zero})
	if !strings.Contains(app.View(), "No ideas found") {
		t.Error("settled empty listing should say so")
	}

	app = withSnapshot(app, paging.Snapshot{Page: 1, Err: errors.New("connection refused")})
	view := app.View()
	if !strings.Contains(view, "connection refused") || !strings.Contains(view, "press r to retry") {
		t.Errorf("listing error should render with a retry hint:\n%s", view)
	}
	if strings.Contains(view, "No ideas found") {
		t.Error("an error is not an empty result")
	}

	app = withSnapshot(app, settled(3, true))
	view = app.View()
	if !strings.Contains(view, "1/3") || !strings.Contains(view, "page 1") {
		t.Errorf("status bar should show position and page:\n%s", view)
	}
}

func TestAppViewFitsHeight(t *testing.T) {
	app := withSnapshot(ready(newTestApp(&fakePager{}, &mockCmd{})), settled(60, true))
	if lines := strings.Count(app.View(), "\n") + 1; lines > 30 {
		t.Errorf("View has %d lines, terminal has 30", lines)
	}
}

func TestAppDetail(t *testing.T) {
	app := withSnapshot(ready(newTestApp(&fakePager{}, &mockCmd{})), settled(3, false))
	app = press(app, "enter")
	if !app.detail {
		t.Fatal("enter should open the detail view")
	}
	if !strings.Contains(app.View(), "Category") {
		t.Error("detail view should show labelled fields")
	}
	app = press(app, "esc")
	if app.detail {
		t.Error("esc should close the detail view")
	}
}

func TestAppHarvestComplete(t *testing.T) {
	app := ready(newTestApp(&fakePager{}, &mockCmd{}))
	model, _ := app.Update(HarvestComplete{Source: "r/startups", NewIdeas: 4})
	app = model.(App)
	if !strings.Contains(app.View(), "4 new ideas") {
		t.Error("harvest result should reach the status bar")
	}
}

func TestAppInitialFilter(t *testing.T) {
	app := NewApp(&fakePager{}, Commands{}, Options{Filter: model.Filter{Category: "saas", Search: "crm"}})
	if app.Filter().Sort != model.SortRecent || app.Filter().PageSize != model.DefaultPageSize {
		t.Errorf("initial filter should be normalized: %+v", app.Filter())
	}
	if app.search.Value() != "crm" {
		t.Errorf("search input = %q, want crm", app.search.Value())
	}
}
