package reports

import (
	"strings"

	"github.com/mmdatafocus/estate_console/models"
)

// Filter returns the records matching the global term and every non-empty column predicate.
//
// The term matches when it is a case-insensitive substring of at least one searchable
// field. A column predicate names a field key; keys without a descriptor are read
// straight from the record. Absent values never match a non-empty predicate.
// The input is not modified and a new slice is returned on every call.
func Filter(records []models.Record, global string, columns map[string]string, fields []models.FieldDescriptor, refs models.RefResolver) []models.Record {
	term := strings.ToLower(strings.TrimSpace(global))

	type predicate struct {
		field  models.FieldDescriptor
		needle string
	}
	var preds []predicate
	for key, p := range columns {
		needle := strings.ToLower(strings.TrimSpace(p))
		if needle == "" {
			continue
		}
		f, ok := fieldByKey(fields, key)
		if !ok {
			f = models.FieldDescriptor{Key: key}
		}
		preds = append(preds, predicate{field: f, needle: needle})
	}

	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if term != "" && !matchesAny(r, term, fields, refs) {
			continue
		}
		matched := true
		for _, p := range preds {
			text, ok := p.field.Text(r, refs)
			if !ok || !strings.Contains(strings.ToLower(text), p.needle) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, r)
		}
	}
	return out
}

func matchesAny(r models.Record, term string, fields []models.FieldDescriptor, refs models.RefResolver) bool {
	for _, f := range fields {
		if !f.Searchable {
			continue
		}
		text, ok := f.Text(r, refs)
		if ok && strings.Contains(strings.ToLower(text), term) {
			return true
		}
	}
	return false
}

func fieldByKey(fields []models.FieldDescriptor, key string) (models.FieldDescriptor, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return models.FieldDescriptor{}, false
}
