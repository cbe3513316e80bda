// Package views holds the view sessions of the console: one per opened screen,
// each owning its record store, reference tables and view state.
package views

import (
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/models/reports"
)

// Session is one opened screen. It is never shared between users.
type Session struct {
	ID     string
	Owner  string
	Report reports.Report
	Store  *models.RecordStore

	mu        sync.Mutex
	params    map[string]string
	state     models.ViewState
	total     int
	lastError string
	touched   time.Time
}

func newSession(id, owner string, report reports.Report, params map[string]string, now time.Time) *Session {
	return &Session{
		ID:      id,
		Owner:   owner,
		Report:  report,
		Store:   models.NewRecordStore(),
		params:  cleanParams(report, params),
		state:   models.DefaultViewState(),
		touched: now,
	}
}

// cleanParams keeps only the params the report declares, trimmed, without empties.
func cleanParams(report reports.Report, params map[string]string) map[string]string {
	out := map[string]string{}
	for _, p := range report.AllowedParams() {
		if v := strings.TrimSpace(params[p]); v != "" {
			out[p] = v
		}
	}
	return out
}

func (s *Session) Params() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.params)
}

func (s *Session) State() models.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// setParams installs new query params. A change resets the view state to defaults.
func (s *Session) setParams(params map[string]string) bool {
	next := cleanParams(s.Report, params)
	s.mu.Lock()
	defer s.mu.Unlock()
	if maps.Equal(next, s.params) {
		return false
	}
	s.params = next
	s.state.ResetForQuery()
	return true
}

func (s *Session) setState(state models.ViewState) {
	if !config.IsValidPageSize(state.Page.Size) {
		state.Page.Size = config.DefaultPageSize
	}
	if state.Page.Index < 1 {
		state.Page.Index = 1
	}
	s.mu.Lock()
	s.state = copyState(state)
	s.mu.Unlock()
}

func (s *Session) setOutcome(total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
	s.lastError = ""
	if err != nil {
		s.lastError = UserMessage(err)
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.touched = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func copyState(v models.ViewState) models.ViewState {
	v.Filter.Columns = maps.Clone(v.Filter.Columns)
	return v
}

// Query is one request's changes to a view. Nil and zero fields leave the
// current state alone.
type Query struct {
	Search    *string
	Columns   map[string]string
	Sort      *string
	Direction string
	Toggle    bool
	Page      int
	Size      int
}

// apply folds q into v. A filter or sort change returns to page 1 and
// overrides an explicit page in the same query.
func (q Query) apply(v *models.ViewState, fields []models.FieldDescriptor) error {
	invalid := map[string]string{}
	before := copyState(*v)

	if q.Search != nil {
		v.SetSearch(strings.TrimSpace(*q.Search))
	}
	for key, predicate := range q.Columns {
		v.SetColumnFilter(key, strings.TrimSpace(predicate))
	}
	if q.Sort != nil {
		key := strings.TrimSpace(*q.Sort)
		switch {
		case key != "" && !sortable(fields, key):
			invalid["sort"] = "not sortable"
		case q.Toggle && key != "":
			v.ToggleSort(key)
		default:
			dir := models.SortAscending
			if q.Direction != "" {
				parsed, ok := models.ParseSortDirection(q.Direction)
				if !ok {
					invalid["dir"] = "oneof asc desc"
				}
				dir = parsed
			}
			if _, bad := invalid["dir"]; !bad {
				v.SetSort(key, dir)
			}
		}
	}
	if q.Size != 0 && !v.SetPageSize(q.Size) {
		invalid["size"] = "oneof 5 10 25 50 100"
	}
	if len(invalid) > 0 {
		return &models.ValidationError{Fields: invalid}
	}
	if q.Page > 0 && !reordered(before, *v) {
		v.SetPage(q.Page)
	}
	return nil
}

func reordered(a, b models.ViewState) bool {
	return a.Filter.Search != b.Filter.Search ||
		!maps.Equal(a.Filter.Columns, b.Filter.Columns) ||
		a.Sort != b.Sort
}

func sortable(fields []models.FieldDescriptor, key string) bool {
	for _, f := range fields {
		if f.Key == key {
			return f.Sortable
		}
	}
	return false
}
