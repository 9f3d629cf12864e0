package paging

import "github.com/abelbrown/ideadeck/internal/model"

// Transition applies ev to s. It is pure: the result depends only on its
// arguments and the input Records slice is never written to.
func Transition(s State, ev Event) (State, Effects) {
	if s.Closed {
		return s, Effects{}
	}

	switch ev := ev.(type) {
	case Initialize:
		f := model.Filter{}
		if ev.Filter != nil {
			f = *ev.Filter
		}
		return reset(s, f)

	case UpdateFilter:
		return reset(s, ev.Filter)

	case Refresh:
		return reset(s, s.Filter)

	case LoadMore:
		return loadMore(s)

	case CountLoaded:
		if ev.Attempt != s.InFlight || s.InFlight == 0 {
			return s, Effects{}
		}
		total := ev.Total
		s.Total = &total
		if total == 0 {
			s.Records = nil
			s.HasMore = false
			return settle(s), Effects{}
		}
		return pageStep(s)

	case PageLoaded:
		if ev.Attempt != s.InFlight || s.InFlight == 0 {
			return s, Effects{}
		}
		if s.Resetting {
			s.Records = append([]model.Idea(nil), ev.Records...)
		} else {
			merged := make([]model.Idea, 0, len(s.Records)+len(ev.Records))
			merged = append(merged, s.Records...)
			s.Records = append(merged, ev.Records...)
		}
		s.HasMore = len(ev.Records) == s.Filter.PageSize &&
			(s.Total == nil || len(s.Records) < *s.Total)
		return settle(s), Effects{}

	case FetchFailed:
		if ev.Attempt != s.InFlight || s.InFlight == 0 {
			return s, Effects{}
		}
		s.Err = ev.Err
		s.HasMore = false
		return settle(s), Effects{}

	case FetchCancelled:
		if ev.Attempt != s.InFlight || s.InFlight == 0 {
			return s, Effects{}
		}
		return settle(s), Effects{}

	case Teardown:
		eff := Effects{Cancel: s.InFlight, Close: true}
		s.Closed = true
		return s, eff
	}

	return s, Effects{}
}

// reset starts a resetting attempt for f, superseding any in-flight one.
func reset(s State, f model.Filter) (State, Effects) {
	eff := Effects{Cancel: s.InFlight}

	s.Filter = f.Normalized()
	s.Records = nil
	s.Total = nil
	s.Page = 1
	s.HasMore = true
	s.Err = nil
	s.Loading = true
	s.Seq++
	s.InFlight = s.Seq
	s.Resetting = true

	eff.Fetch = &Request{Attempt: s.InFlight, Kind: RequestCount, Filter: s.Filter}
	return s, eff
}

func loadMore(s State) (State, Effects) {
	if s.Loading || !s.HasMore || s.InFlight != 0 || s.Page == 0 {
		return s, Effects{}
	}

	s.Page++
	s.Err = nil
	s.Loading = true
	s.Seq++
	s.InFlight = s.Seq
	s.Resetting = false

	if s.Total == nil {
		return s, Effects{Fetch: &Request{Attempt: s.InFlight, Kind: RequestCount, Filter: s.Filter}}
	}
	return pageStep(s)
}

// pageStep issues the range query for the in-flight attempt, or stops when
// the offset is already past the known total.
func pageStep(s State) (State, Effects) {
	offset := 0
	if !s.Resetting {
		offset = (s.Page - 1) * s.Filter.PageSize
	}
	if s.Total != nil && offset >= *s.Total {
		s.HasMore = false
		return settle(s), Effects{}
	}
	return s, Effects{Fetch: &Request{
		Attempt: s.InFlight,
		Kind:    RequestPage,
		Filter:  s.Filter,
		Offset:  offset,
		Limit:   s.Filter.PageSize,
	}}
}

// settle ends the in-flight attempt.
func settle(s State) State {
	s.Loading = false
	s.InFlight = 0
	s.Resetting = false
	return s
}
