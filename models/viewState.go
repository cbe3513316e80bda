package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/estate_console/config"
)

type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

func ParseSortDirection(s string) (SortDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return SortAscending, true
	case "desc", "descending":
		return SortDescending, true
	}
	return "", false
}

// FilterState is a global search term plus per-column substring predicates.
// Empty values match everything.
type FilterState struct {
	Search  string            `json:"search,omitempty"`
	Columns map[string]string `json:"columns,omitempty"`
}

// SortState holds at most one active key. An empty Key keeps fetch order.
type SortState struct {
	Key       string        `json:"key,omitempty"`
	Direction SortDirection `json:"direction,omitempty"`
}

func (s SortState) Active() bool {
	return s.Key != ""
}

type PageState struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// ViewState is the screen-scoped state passed through filter, sort and paginate.
type ViewState struct {
	Filter FilterState `json:"filter"`
	Sort   SortState   `json:"sort"`
	Page   PageState   `json:"page"`
}

func DefaultViewState() ViewState {
	return ViewState{Page: PageState{Index: 1, Size: config.DefaultPageSize}}
}

// ResetForQuery restores defaults; used when the view's query parameters change.
func (v *ViewState) ResetForQuery() {
	*v = DefaultViewState()
}

// SetSearch changes the global term and returns to page 1.
func (v *ViewState) SetSearch(term string) {
	if v.Filter.Search == term {
		return
	}
	v.Filter.Search = term
	v.Page.Index = 1
}

// SetColumnFilter changes one column predicate and returns to page 1.
// An empty predicate removes the column filter.
func (v *ViewState) SetColumnFilter(key, predicate string) {
	if v.Filter.Columns[key] == predicate {
		return
	}
	if predicate == "" {
		delete(v.Filter.Columns, key)
	} else {
		if v.Filter.Columns == nil {
			v.Filter.Columns = map[string]string{}
		}
		v.Filter.Columns[key] = predicate
	}
	v.Page.Index = 1
}

// ToggleSort flips direction on the active key; a new key starts ascending.
func (v *ViewState) ToggleSort(key string) {
	if v.Sort.Key == key && v.Sort.Direction == SortAscending {
		v.Sort.Direction = SortDescending
	} else if v.Sort.Key == key {
		v.Sort.Direction = SortAscending
	} else {
		v.Sort = SortState{Key: key, Direction: SortAscending}
	}
	v.Page.Index = 1
}

// SetSort installs an explicit key and direction; an empty key clears sorting.
func (v *ViewState) SetSort(key string, dir SortDirection) {
	next := SortState{Key: key, Direction: dir}
	if key == "" {
		next = SortState{}
	} else if dir == "" {
		next.Direction = SortAscending
	}
	if next == v.Sort {
		return
	}
	v.Sort = next
	v.Page.Index = 1
}

// SetPageSize keeps the current index; the paginator re-clamps it.
func (v *ViewState) SetPageSize(size int) bool {
	if !config.IsValidPageSize(size) {
		return false
	}
	v.Page.Size = size
	return true
}

func (v *ViewState) SetPage(index int) {
	if index < 1 {
		index = 1
	}
	v.Page.Index = index
}

/* persistence */

func viewStateKey(viewId string) string {
	return "ViewState:" + viewId
}

type storedViewState struct {
	Owner string    `json:"owner"`
	State ViewState `json:"state"`
}

// StoreViewState keeps the state of a view in Redis for the life of the view.
// Without Redis this is a no-op and the in-memory copy is authoritative.
func StoreViewState(ctx context.Context, viewId, owner string, state ViewState, ttl time.Duration) error {
	return config.SetRedisObject(ctx, viewStateKey(viewId), storedViewState{Owner: owner, State: state}, ttl)
}

// LoadViewState returns the persisted state of viewId when owner stored it.
// A view saved by someone else reads as absent.
func LoadViewState(ctx context.Context, viewId, owner string) (ViewState, bool, error) {
	var stored storedViewState
	ok, err := config.GetRedisObject(ctx, viewStateKey(viewId), &stored)
	if err != nil || !ok || stored.Owner != owner {
		return ViewState{}, false, err
	}
	return stored.State, true, nil
}

func RemoveViewState(ctx context.Context, viewId string) error {
	return config.RemoveRedisKey(ctx, viewStateKey(viewId))
}
