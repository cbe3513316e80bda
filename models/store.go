package models

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// UnknownLabel is shown for ids a reference table does not (yet) hold.
const UnknownLabel = "Unknown"

// ReferenceTable is a read-only lookup collection (branches, ventures, statuses).
type ReferenceTable struct {
	Name     string
	IDKey    string
	LabelKey string
	byID     map[string]Record
}

func NewReferenceTable(name, idKey, labelKey string, rows []Record) *ReferenceTable {
	if idKey == "" {
		idKey = "id"
	}
	if labelKey == "" {
		labelKey = "name"
	}
	t := &ReferenceTable{Name: name, IDKey: idKey, LabelKey: labelKey, byID: make(map[string]Record, len(rows))}
	for _, row := range rows {
		t.byID[Stringify(row[idKey])] = row
	}
	return t
}

func (t *ReferenceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byID)
}

// Get returns the row for id, or a placeholder carrying UnknownLabel.
func (t *ReferenceTable) Get(id any) Record {
	key := Stringify(id)
	if t != nil {
		if row, ok := t.byID[key]; ok {
			return row
		}
	}
	labelKey := "name"
	if t != nil {
		labelKey = t.LabelKey
	}
	return Record{"id": id, labelKey: UnknownLabel}
}

func (t *ReferenceTable) Label(id any) string {
	labelKey := "name"
	if t != nil {
		labelKey = t.LabelKey
	}
	return Stringify(t.Get(id)[labelKey])
}

// Options lists the rows as id/label pairs ordered by label.
func (t *ReferenceTable) Options() []Option {
	if t == nil {
		return nil
	}
	out := make([]Option, 0, len(t.byID))
	for id, row := range t.byID {
		out = append(out, Option{ID: id, Label: Stringify(row[t.LabelKey])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label == out[j].Label {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Label) < strings.ToLower(out[j].Label)
	})
	return out
}

type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// RecordStore owns the records of one view plus its reference tables.
//
// The collection is an immutable snapshot behind an atomic pointer: Replace and
// PatchOne build a new slice, so a reader holding a snapshot never sees a
// partial update.
type RecordStore struct {
	records atomic.Pointer[[]Record]
	latest  atomic.Uint64

	refMu sync.RWMutex
	refs  map[string]*ReferenceTable

	patchMu sync.Mutex
}

func NewRecordStore() *RecordStore {
	s := &RecordStore{refs: map[string]*ReferenceTable{}}
	empty := []Record{}
	s.records.Store(&empty)
	return s
}

// Snapshot returns the current collection. Callers must not modify it.
func (s *RecordStore) Snapshot() []Record {
	return *s.records.Load()
}

func (s *RecordStore) Len() int {
	return len(s.Snapshot())
}

// Replace swaps the whole collection. The given slice is copied.
func (s *RecordStore) Replace(records []Record) {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()
	next := make([]Record, len(records))
	copy(next, records)
	s.records.Store(&next)
}

// Begin issues a request token for a fetch about to start.
func (s *RecordStore) Begin() uint64 {
	return s.latest.Add(1)
}

// Commit replaces the collection only if token is still the latest issued,
// so a late response for an abandoned query cannot overwrite a newer one.
func (s *RecordStore) Commit(token uint64, records []Record) bool {
	if s.latest.Load() != token {
		return false
	}
	s.Replace(records)
	return true
}

// Current reports whether token is still the latest issued.
func (s *RecordStore) Current(token uint64) bool {
	return s.latest.Load() == token
}

func (s *RecordStore) Find(id string) (Record, bool) {
	for _, r := range s.Snapshot() {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// PatchOne applies a shallow update to the record matched by id and returns the
// previous value of each updated field (nil when the field was absent).
func (s *RecordStore) PatchOne(id string, updates map[string]any) (map[string]any, error) {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()

	current := *s.records.Load()
	idx := -1
	for i, r := range current {
		if r.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrRecordNotFound
	}

	previous := make(map[string]any, len(updates))
	patched := current[idx].Clone()
	for k, v := range updates {
		previous[k] = current[idx][k]
		patched[k] = v
	}

	next := make([]Record, len(current))
	copy(next, current)
	next[idx] = patched
	s.records.Store(&next)
	return previous, nil
}

// RevertOne puts previous values back on the record matched by id, but only for
// fields that still hold what was applied; a refresh that landed in between wins.
func (s *RecordStore) RevertOne(id string, applied, previous map[string]any) bool {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()

	current := *s.records.Load()
	for i, r := range current {
		if r.ID() != id {
			continue
		}
		reverted := r.Clone()
		changed := false
		for k, v := range applied {
			if !reflect.DeepEqual(r[k], v) {
				continue
			}
			if prev, ok := previous[k]; ok && prev != nil {
				reverted[k] = prev
			} else {
				delete(reverted, k)
			}
			changed = true
		}
		if !changed {
			return false
		}
		next := make([]Record, len(current))
		copy(next, current)
		next[i] = reverted
		s.records.Store(&next)
		return true
	}
	return false
}

// ReplaceOne swaps the record matched by id for canonical, keeping its position.
func (s *RecordStore) ReplaceOne(id string, canonical Record) bool {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()

	current := *s.records.Load()
	for i, r := range current {
		if r.ID() != id {
			continue
		}
		next := make([]Record, len(current))
		copy(next, current)
		next[i] = canonical
		s.records.Store(&next)
		return true
	}
	return false
}

func (s *RecordStore) SetReference(t *ReferenceTable) {
	if t == nil {
		return
	}
	s.refMu.Lock()
	s.refs[t.Name] = t
	s.refMu.Unlock()
}

func (s *RecordStore) Reference(table string) *ReferenceTable {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	return s.refs[table]
}

// Lookup resolves a reference entry; unknown tables and ids yield a placeholder.
func (s *RecordStore) Lookup(table string, id any) Record {
	return s.Reference(table).Get(id)
}

// Label implements RefResolver.
func (s *RecordStore) Label(table string, id any) string {
	return s.Reference(table).Label(id)
}
