package paging

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/remote"
)

func ideas(from, to int) []model.Idea {
	var out []model.Idea
	for i := from; i <= to; i++ {
		out = append(out, model.Idea{ID: int64(i), Title: fmt.Sprintf("R%d", i)})
	}
	return out
}

func ids(records []model.Idea) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func pageSize(n int) *model.Filter {
	return &model.Filter{PageSize: n}
}

// step applies ev and fails the test if the effects differ from want.
func step(t *testing.T, s State, ev Event, want Effects) State {
	t.Helper()
	next, eff := Transition(s, ev)
	require.Equal(t, want, eff, "effects of %T", ev)
	return next
}

func countReq(attempt uint64, f model.Filter) *Request {
	return &Request{Attempt: attempt, Kind: RequestCount, Filter: f.Normalized()}
}

func pageReq(attempt uint64, f model.Filter, offset int) *Request {
	f = f.Normalized()
	return &Request{Attempt: attempt, Kind: RequestPage, Filter: f, Offset: offset, Limit: f.PageSize}
}

func TestInitializeDefaults(t *testing.T) {
	s, eff := Transition(State{}, Initialize{})

	assert.Equal(t, model.DefaultPageSize, s.Filter.PageSize)
	assert.Equal(t, model.SortRecent, s.Filter.Sort)
	assert.Equal(t, 1, s.Page)
	assert.True(t, s.Loading)
	assert.True(t, s.HasMore)
	assert.Nil(t, s.Total)
	assert.Equal(t, Effects{Fetch: countReq(1, model.Filter{})}, eff)
}

func TestPagedScenario(t *testing.T) {
	f := *pageSize(2)
	s := step(t, State{}, Initialize{Filter: &f}, Effects{Fetch: countReq(1, f)})
	s = step(t, s, CountLoaded{Attempt: 1, Total: 5}, Effects{Fetch: pageReq(1, f, 0)})
	s = step(t, s, PageLoaded{Attempt: 1, Records: ideas(1, 2)}, Effects{})

	assert.Equal(t, []int64{1, 2}, ids(s.Records))
	assert.True(t, s.HasMore)
	assert.False(t, s.Loading)

	// Total is cached, so LoadMore goes straight to the range query.
	s = step(t, s, LoadMore{}, Effects{Fetch: pageReq(2, f, 2)})
	s = step(t, s, PageLoaded{Attempt: 2, Records: ideas(3, 4)}, Effects{})
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(s.Records))
	assert.True(t, s.HasMore)

	s = step(t, s, LoadMore{}, Effects{Fetch: pageReq(3, f, 4)})
	s = step(t, s, PageLoaded{Attempt: 3, Records: ideas(5, 5)}, Effects{})
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(s.Records))
	assert.False(t, s.HasMore)
	assert.Equal(t, 3, s.Page)

	after := step(t, s, LoadMore{}, Effects{})
	assert.Equal(t, s, after, "LoadMore after the last page must be a no-op")
}

func TestLoadMoreWhileLoadingIsNoop(t *testing.T) {
	s := step(t, State{}, Initialize{Filter: pageSize(2)}, Effects{Fetch: countReq(1, *pageSize(2))})

	again, eff := Transition(s, LoadMore{})
	assert.True(t, eff.None(), "no second page-1 fetch while the first is in flight")
	assert.Equal(t, s, again)
}

func TestLoadMoreBeforeInitializeIsNoop(t *testing.T) {
	s, eff := Transition(State{}, LoadMore{})
	assert.True(t, eff.None())
	assert.Equal(t, State{}, s)
}

func TestZeroTotalSkipsPageFetch(t *testing.T) {
	s := step(t, State{}, Initialize{}, Effects{Fetch: countReq(1, model.Filter{})})
	s = step(t, s, CountLoaded{Attempt: 1, Total: 0}, Effects{})

	assert.False(t, s.HasMore)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Records)
	require.NotNil(t, s.Total)
	assert.Equal(t, 0, *s.Total)
}

func TestShortPageEndsListingWithoutTotal(t *testing.T) {
	// A non-resetting attempt with an unknown total counts first; simulate
	// the count being unavailable by delivering the page directly.
	f := *pageSize(3)
	s := State{Filter: f.Normalized(), Page: 1, HasMore: true, Records: ideas(1, 3)}
	s = step(t, s, LoadMore{}, Effects{Fetch: countReq(1, f)})
	s.Total = nil
	s = step(t, s, PageLoaded{Attempt: 1, Records: ideas(4, 5)}, Effects{})

	assert.Nil(t, s.Total)
	assert.False(t, s.HasMore, "short page must end the listing even with unknown total")
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(s.Records))
}

func TestFullPageAtTotalEndsListing(t *testing.T) {
	f := *pageSize(2)
	s := step(t, State{}, Initialize{Filter: &f}, Effects{Fetch: countReq(1, f)})
	s = step(t, s, CountLoaded{Attempt: 1, Total: 2}, Effects{Fetch: pageReq(1, f, 0)})
	s = step(t, s, PageLoaded{Attempt: 1, Records: ideas(1, 2)}, Effects{})

	assert.False(t, s.HasMore, "len(Records) == Total")
}

func TestOffsetPastTotalStops(t *testing.T) {
	f := *pageSize(2)
	total := 2
	// Store returned fewer rows than counted earlier; HasMore still true.
	s := State{Filter: f.Normalized(), Page: 1, HasMore: true, Total: &total, Records: ideas(1, 2)}

	s = step(t, s, LoadMore{}, Effects{})
	assert.False(t, s.HasMore)
	assert.False(t, s.Loading)
	assert.Equal(t, uint64(0), s.InFlight)
	assert.Equal(t, []int64{1, 2}, ids(s.Records))
}

func TestUpdateFilterSupersedesInFlight(t *testing.T) {
	saas := model.Filter{Category: "saas"}
	tech := model.Filter{Category: "tech"}

	s := step(t, State{}, Initialize{Filter: &saas}, Effects{Fetch: countReq(1, saas)})
	s = step(t, s, CountLoaded{Attempt: 1, Total: 20}, Effects{Fetch: pageReq(1, saas, 0)})

	s = step(t, s, UpdateFilter{Filter: tech}, Effects{Cancel: 1, Fetch: countReq(2, tech)})
	assert.Empty(t, s.Records, "UpdateFilter clears accumulated records")
	assert.Nil(t, s.Total)
	assert.Equal(t, 1, s.Page)

	s = step(t, s, CountLoaded{Attempt: 2, Total: 1}, Effects{Fetch: pageReq(2, tech, 0)})
	techIdea := model.Idea{ID: 100, Category: "tech"}
	s = step(t, s, PageLoaded{Attempt: 2, Records: []model.Idea{techIdea}}, Effects{})

	// The stale saas page resolves late.
	stale := []model.Idea{{ID: 1, Category: "saas"}, {ID: 2, Category: "saas"}}
	after := step(t, s, PageLoaded{Attempt: 1, Records: stale}, Effects{})
	assert.Equal(t, s, after, "stale resolution must not mutate state")

	after = step(t, after, FetchFailed{Attempt: 1, Err: errors.New("late failure")}, Effects{})
	assert.Equal(t, s, after)

	for _, r := range after.Records {
		assert.Equal(t, "tech", r.Category)
	}
}

func TestStaleCancelDoesNotClearNewerLoading(t *testing.T) {
	s := step(t, State{}, Initialize{}, Effects{Fetch: countReq(1, model.Filter{})})
	s = step(t, s, Refresh{}, Effects{Cancel: 1, Fetch: countReq(2, model.Filter{})})

	after := step(t, s, FetchCancelled{Attempt: 1}, Effects{})
	assert.True(t, after.Loading, "a stale cancellation must not clear the newer attempt's loading flag")
	assert.Equal(t, s, after)

	current := step(t, after, FetchCancelled{Attempt: 2}, Effects{})
	assert.False(t, current.Loading)
	assert.Nil(t, current.Err, "cancellation is not an error")
}

func TestFirstPageFailureThenRefresh(t *testing.T) {
	f := *pageSize(2)
	storeErr := &remote.StoreError{Op: "select", Status: 503, Err: errors.New("unavailable")}

	s := step(t, State{}, Initialize{Filter: &f}, Effects{Fetch: countReq(1, f)})
	s = step(t, s, CountLoaded{Attempt: 1, Total: 3}, Effects{Fetch: pageReq(1, f, 0)})
	s = step(t, s, FetchFailed{Attempt: 1, Err: storeErr}, Effects{})

	assert.Empty(t, s.Records)
	assert.ErrorIs(t, s.Err, storeErr)
	assert.False(t, s.HasMore)
	assert.False(t, s.Loading)

	blocked := step(t, s, LoadMore{}, Effects{})
	assert.Equal(t, s, blocked, "LoadMore is disabled after an error")

	s = step(t, s, Refresh{}, Effects{Fetch: countReq(2, f)})
	assert.Nil(t, s.Err, "Refresh clears the error")
	s = step(t, s, CountLoaded{Attempt: 2, Total: 3}, Effects{Fetch: pageReq(2, f, 0)})
	s = step(t, s, PageLoaded{Attempt: 2, Records: ideas(1, 2)}, Effects{})

	assert.Equal(t, []int64{1, 2}, ids(s.Records))
	assert.True(t, s.HasMore)
	assert.Nil(t, s.Err)
}

func TestLoadMoreFailureKeepsRecords(t *testing.T) {
	f := *pageSize(2)
	s := step(t, State{}, Initialize{Filter: &f}, Effects{Fetch: countReq(1, f)})
	s = step(t, s, CountLoaded{Attempt: 1, Total: 6}, Effects{Fetch: pageReq(1, f, 0)})
	s = step(t, s, PageLoaded{Attempt: 1, Records: ideas(1, 2)}, Effects{})
	s = step(t, s, LoadMore{}, Effects{Fetch: pageReq(2, f, 2)})
	s = step(t, s, FetchFailed{Attempt: 2, Err: errors.New("timeout")}, Effects{})

	assert.Equal(t, []int64{1, 2}, ids(s.Records), "failed LoadMore keeps earlier pages")
	assert.Error(t, s.Err)
	assert.False(t, s.HasMore)
}

func TestRefreshTwiceIsIdempotent(t *testing.T) {
	f := *pageSize(2)
	run := func(s State) State {
		attempt := s.Seq + 1
		s = step(t, s, Refresh{}, Effects{Fetch: countReq(attempt, f)})
		s = step(t, s, CountLoaded{Attempt: attempt, Total: 3}, Effects{Fetch: pageReq(attempt, f, 0)})
		return step(t, s, PageLoaded{Attempt: attempt, Records: ideas(1, 2)}, Effects{})
	}

	s := State{Filter: f.Normalized()}
	first := run(s)
	second := run(first)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.HasMore, second.HasMore)
	assert.Equal(t, first.Page, second.Page)
}

func TestRefreshAfterLoadMoreResetsCursor(t *testing.T) {
	f := *pageSize(2)
	s := step(t, State{}, Initialize{Filter: &f}, Effects{Fetch: countReq(1, f)})
	s = step(t, s, CountLoaded{Attempt: 1, Total: 10}, Effects{Fetch: pageReq(1, f, 0)})
	s = step(t, s, PageLoaded{Attempt: 1, Records: ideas(1, 2)}, Effects{})
	s = step(t, s, LoadMore{}, Effects{Fetch: pageReq(2, f, 2)})
	s = step(t, s, PageLoaded{Attempt: 2, Records: ideas(3, 4)}, Effects{})
	require.Equal(t, 2, s.Page)

	s = step(t, s, Refresh{}, Effects{Fetch: countReq(3, f)})
	assert.Equal(t, 1, s.Page)
	assert.Empty(t, s.Records)

	s = step(t, s, CountLoaded{Attempt: 3, Total: 10}, Effects{Fetch: pageReq(3, f, 0)})
	s = step(t, s, PageLoaded{Attempt: 3, Records: ideas(1, 2)}, Effects{})
	assert.Equal(t, []int64{1, 2}, ids(s.Records), "refresh replaces rather than appends")
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	f := *pageSize(2)
	backing := make([]model.Idea, 2, 8)
	copy(backing, ideas(1, 2))
	total := 10
	s := State{Filter: f.Normalized(), Page: 2, HasMore: true, Total: &total, Records: backing, InFlight: 4, Seq: 4, Loading: true}

	next, _ := Transition(s, PageLoaded{Attempt: 4, Records: ideas(3, 4)})
	require.Len(t, next.Records, 4)

	// Appending to the original slice must not leak into next.
	_ = append(s.Records, model.Idea{ID: 99})
	assert.Equal(t, int64(3), next.Records[2].ID)
}

func TestTeardownFreezesState(t *testing.T) {
	s := step(t, State{}, Initialize{}, Effects{Fetch: countReq(1, model.Filter{})})
	s = step(t, s, Teardown{}, Effects{Cancel: 1, Close: true})
	require.True(t, s.Closed)

	for _, ev := range []Event{
		CountLoaded{Attempt: 1, Total: 3},
		PageLoaded{Attempt: 1, Records: ideas(1, 2)},
		FetchFailed{Attempt: 1, Err: errors.New("x")},
		FetchCancelled{Attempt: 1},
		LoadMore{},
		Refresh{},
		UpdateFilter{Filter: model.Filter{Category: "tech"}},
		Teardown{},
	} {
		after := step(t, s, ev, Effects{})
		assert.Equal(t, s, after, "%T after teardown", ev)
	}
}

func TestTeardownWhenIdle(t *testing.T) {
	s := step(t, State{}, Teardown{}, Effects{Close: true})
	assert.True(t, s.Closed)
}
