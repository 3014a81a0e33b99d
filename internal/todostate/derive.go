package todostate

import (
	"github.com/idilsaglam/todoflow/internal/model"
	"github.com/idilsaglam/todoflow/internal/store"
	"github.com/idilsaglam/todoflow/internal/viewstate"
)

// ViewState is what presentation code renders.
type ViewState = viewstate.State[[]model.Item]

// Derive combines the latest item list with a filter. It depends only on
// its arguments: an empty result is Empty, never Success with no items, and
// Success items are newest first with ties in input order.
func Derive(items []model.Item, f model.Filter) ViewState {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return viewstate.Empty[[]model.Item]()
	}
	store.SortNewestFirst(out)
	return viewstate.Success(out)
}

// Stats summarises an item list for the filter bar.
type Stats struct {
	All       int
	Active    int
	Completed int
}

// Count returns the number of items f would show.
func (s Stats) Count(f model.Filter) int {
	switch f {
	case model.FilterActive:
		return s.Active
	case model.FilterCompleted:
		return s.Completed
	default:
		return s.All
	}
}

// Rate is the completion percentage, rounded down; 0 for an empty list.
func (s Stats) Rate() int {
	if s.All == 0 {
		return 0
	}
	return s.Completed * 100 / s.All
}

func statsOf(items []model.Item) Stats {
	st := Stats{All: len(items)}
	for _, it := range items {
		if it.Completed {
			st.Completed++
		} else {
			st.Active++
		}
	}
	return st
}
