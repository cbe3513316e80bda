package reports

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/utils"
	"github.com/shopspring/decimal"
)

// Sort orders records by state.Key. Without an active key the input slice is
// returned as is. Nil values go last in both directions; ties keep input order.
func Sort(records []models.Record, state models.SortState, fields []models.FieldDescriptor, refs models.RefResolver) []models.Record {
	if !state.Active() {
		return records
	}
	f, ok := fieldByKey(fields, state.Key)
	if !ok {
		f = models.FieldDescriptor{Key: state.Key}
	}
	desc := state.Direction == models.SortDescending

	type keyed struct {
		rec  models.Record
		key  sortKey
		null bool
	}
	rows := make([]keyed, len(records))
	for i, r := range records {
		k, present := makeSortKey(f, r, refs)
		rows[i] = keyed{rec: r, key: k, null: !present}
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		switch {
		case a.null && b.null:
			return 0
		case a.null:
			return 1
		case b.null:
			return -1
		}
		c := compareKeys(a.key, b.key)
		if desc {
			return -c
		}
		return c
	})

	out := make([]models.Record, len(rows))
	for i, row := range rows {
		out[i] = row.rec
	}
	return out
}

type sortKind int

const (
	kindText sortKind = iota
	kindNumber
	kindTime
)

type sortKey struct {
	kind sortKind
	text string
	num  decimal.Decimal
	unix int64
}

func makeSortKey(f models.FieldDescriptor, r models.Record, refs models.RefResolver) (sortKey, bool) {
	raw := f.Raw(r)
	if raw == nil {
		return sortKey{}, false
	}
	if f.Ref == nil {
		switch {
		case f.Type.IsNumeric() || isNumberValue(raw):
			if d, ok := utils.ParseAmount(raw); ok {
				return sortKey{kind: kindNumber, num: d}, true
			}
		case f.Type == models.FieldTypeDate:
			if t, ok := models.ParseDate(raw); ok {
				return sortKey{kind: kindTime, unix: t.UnixNano()}, true
			}
		}
	}
	text, ok := f.Text(r, refs)
	if !ok {
		return sortKey{}, false
	}
	return sortKey{kind: kindText, text: strings.ToLower(text)}, true
}

func isNumberValue(v any) bool {
	switch v.(type) {
	case json.Number, float64, float32, int, int64:
		return true
	}
	return false
}

// Mixed kinds (a numeric column holding "N/A") put numbers before text when ascending.
func compareKeys(a, b sortKey) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return 1
		}
		return -1
	}
	switch a.kind {
	case kindNumber:
		return a.num.Cmp(b.num)
	case kindTime:
		switch {
		case a.unix < b.unix:
			return -1
		case a.unix > b.unix:
			return 1
		}
		return 0
	}
	return strings.Compare(a.text, b.text)
}
