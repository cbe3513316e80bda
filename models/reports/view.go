package reports

import (
	"time"

	"github.com/mmdatafocus/estate_console/models"
)

// Result is what one screen renders: the visible page plus the counts around it.
type Result struct {
	Page
	Matched int `json:"matched"`
	Fetched int `json:"fetched"`
}

// Compute runs filter, sort and paginate over the store's current snapshot.
// The clamped page index is written back to state so the next request starts
// from the page that was actually shown.
func Compute(store *models.RecordStore, fields []models.FieldDescriptor, state *models.ViewState) Result {
	started := time.Now()
	all := store.Snapshot()

	filtered := Filter(all, state.Filter.Search, state.Filter.Columns, fields, store)
	sorted := Sort(filtered, state.Sort, fields, store)
	page := Paginate(sorted, state.Page.Index, state.Page.Size)

	state.Page.Index = page.Index
	state.Page.Size = page.Size

	logSlowPipeline(started, len(all), len(filtered))
	return Result{Page: page, Matched: len(filtered), Fetched: len(all)}
}

// Ordered returns every record matching state in display order, unpaginated.
// Exports use it so a file holds the whole filtered set, not the visible page.
func Ordered(store *models.RecordStore, fields []models.FieldDescriptor, state models.ViewState) []models.Record {
	filtered := Filter(store.Snapshot(), state.Filter.Search, state.Filter.Columns, fields, store)
	return Sort(filtered, state.Sort, fields, store)
}
