package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/utils"
)

// Record is one row fetched from the backend: a lead, a receipt, an agent, a plot.
type Record map[string]any

// ID returns the record's "id" as a string; ids arrive as numbers or strings.
func (r Record) ID() string {
	return Stringify(r["id"])
}

type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeCurrency FieldType = "currency"
)

func (t FieldType) IsNumeric() bool {
	return t == FieldTypeNumber || t == FieldTypeCurrency
}

// RefJoin resolves an id held in the record against a reference table.
type RefJoin struct {
	Table string
}

// FieldDescriptor declares one column of a tabular view.
//
// The value is read through Accessor when set, otherwise from Key; a dotted
// Key ("agent.name") walks nested objects. Fallback replaces an absent value.
// SubFields lists the user-facing keys of a nested object value: search and
// display use them instead of a generic serialization.
type FieldDescriptor struct {
	Key        string
	Label      string
	Type       FieldType
	Searchable bool
	Sortable   bool
	Accessor   func(Record) any `json:"-"`
	Fallback   any
	SubFields  []string
	Ref        *RefJoin
}

// Raw returns the field's underlying value, or nil.
func (f FieldDescriptor) Raw(r Record) any {
	var v any
	if f.Accessor != nil {
		v = f.Accessor(r)
	} else {
		v = lookupPath(r, f.Key)
	}
	if v == nil {
		return f.Fallback
	}
	return v
}

// Text is the value used by search and column filters.
// Nested objects contribute their sub-fields, joined references their label.
func (f FieldDescriptor) Text(r Record, refs RefResolver) (string, bool) {
	v := f.Raw(r)
	if v == nil {
		return "", false
	}
	if f.Ref != nil && refs != nil {
		return refs.Label(f.Ref.Table, v), true
	}
	if obj, ok := asObject(v); ok {
		return f.subFieldText(obj), true
	}
	return Stringify(v), true
}

// Display is the string shown on screen and written to every export.
func (f FieldDescriptor) Display(r Record, refs RefResolver) string {
	v := f.Raw(r)
	if v == nil {
		return ""
	}
	if f.Ref != nil && refs != nil {
		return refs.Label(f.Ref.Table, v)
	}
	if obj, ok := asObject(v); ok {
		return f.subFieldText(obj)
	}
	switch f.Type {
	case FieldTypeCurrency:
		if d, ok := utils.ParseAmount(v); ok {
			return utils.FormatAmount(d, config.CurrencySymbol(), config.IndianGrouping())
		}
	case FieldTypeNumber:
		if d, ok := utils.ParseAmount(v); ok {
			return d.String()
		}
	case FieldTypeDate:
		if t, ok := ParseDate(v); ok {
			return t.Format(config.DateLayout())
		}
	}
	return Stringify(v)
}

func (f FieldDescriptor) subFieldText(obj map[string]any) string {
	keys := f.SubFields
	if len(keys) == 0 {
		keys = []string{"name"}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := Stringify(obj[k]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// RefResolver turns a reference id into its display label.
type RefResolver interface {
	Label(table string, id any) string
}

// Stringify renders scalar JSON values without exponent notation; nil is "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
}

// ParseDate accepts the date shapes the backend emits.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func lookupPath(r Record, key string) any {
	if v, ok := r[key]; ok {
		return v
	}
	if !strings.Contains(key, ".") {
		return nil
	}
	var cur any = map[string]any(r)
	for _, part := range strings.Split(key, ".") {
		obj, ok := asObject(cur)
		if !ok {
			return nil
		}
		cur = obj[part]
	}
	return cur
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Record:
		return t, true
	}
	return nil, false
}

// Clone is a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
