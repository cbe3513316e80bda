// Package decoder turns upstream response bodies into JSON values.
//
// The upstream backend sometimes writes an empty array before the real payload
// (`[]{"status":true,...}`), sometimes double-encodes the whole body as a JSON
// string, and sometimes wraps the payload in a one-element array or an extra
// `data` object. Every fetch in this repo goes through Decode so screens see one
// consistent shape.
package decoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// DecodeError carries the original body for diagnostics.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses body and normalizes the known envelope quirks.
func Decode(body []byte) (any, error) {
	v, err := Parse(body)
	if err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

// Parse is a strict JSON parse followed by at most one recovery heuristic:
// an empty-array prefix is stripped, or a double-encoded string is parsed again.
func Parse(body []byte) (any, error) {
	v, err := strict(body)
	if err == nil {
		if inner, ok := doubleEncoded(v); ok {
			return inner, nil
		}
		return v, nil
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 2 && trimmed[0] == '[' && trimmed[1] == ']' {
		recovered, rerr := strict(trimmed[2:])
		if rerr != nil {
			return nil, &DecodeError{Body: string(body), Err: rerr}
		}
		return recovered, nil
	}

	return nil, &DecodeError{Body: string(body), Err: err}
}

// Normalize unwraps a one-element envelope array and one level of nested `data` objects.
func Normalize(v any) any {
	if arr, ok := v.([]any); ok && len(arr) == 1 {
		if first, ok := arr[0].(map[string]any); ok && isEnvelope(first) {
			v = first
		}
	}
	if obj, ok := v.(map[string]any); ok {
		if inner, ok := obj["data"].(map[string]any); ok && isEnvelope(inner) {
			return inner
		}
	}
	return v
}

// Collection extracts the record collection from a decoded value.
// Accepted shapes are a raw array, a raw object (one record) and
// `{data: [...], total: N}`. total falls back to the number of records.
func Collection(v any) ([]map[string]any, int) {
	switch t := v.(type) {
	case []any:
		records := objects(t)
		return records, len(records)
	case map[string]any:
		data, ok := t["data"]
		if !ok {
			return []map[string]any{t}, 1
		}
		var records []map[string]any
		switch d := data.(type) {
		case []any:
			records = objects(d)
		case map[string]any:
			if nested, ok := d["data"].([]any); ok {
				records = objects(nested)
			} else {
				records = []map[string]any{d}
			}
		case nil:
			records = []map[string]any{}
		default:
			return []map[string]any{}, 0
		}
		if total, ok := totalOf(t["total"]); ok {
			return records, total
		}
		return records, len(records)
	}
	return []map[string]any{}, 0
}

// Failed reports whether a decoded envelope carries an explicit `status: false`.
// A record with a false status flag is not a failure.
func Failed(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok || !isEnvelope(obj) {
		return "", false
	}
	status, ok := obj["status"].(bool)
	if !ok || status {
		return "", false
	}
	msg, _ := obj["message"].(string)
	if msg == "" {
		msg, _ = obj["error"].(string)
	}
	return msg, true
}

func strict(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}

func doubleEncoded(v any) (any, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	inner := bytes.TrimSpace([]byte(s))
	if len(inner) == 0 || (inner[0] != '{' && inner[0] != '[') {
		return nil, false
	}
	parsed, err := strict(inner)
	if err != nil {
		return nil, false
	}
	return parsed, true
}

// envelopeKeys are the only keys a response wrapper carries. Records too may
// have a boolean status (an active flag), so status alone never marks one.
var envelopeKeys = map[string]bool{
	"data": true, "status": true, "success": true, "message": true, "error": true, "errors": true,
	"code": true, "total": true, "count": true, "meta": true, "links": true, "pagination": true,
	"page": true, "per_page": true, "page_size": true, "current_page": true, "last_page": true,
}

// isEnvelope reports whether every key of obj is a wrapper key and it holds
// a boolean status or a data key.
func isEnvelope(obj map[string]any) bool {
	if len(obj) == 0 {
		return false
	}
	for k := range obj {
		if !envelopeKeys[k] {
			return false
		}
	}
	_, hasData := obj["data"]
	_, boolStatus := obj["status"].(bool)
	return hasData || boolStatus
}

func objects(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func totalOf(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		return int(t), true
	}
	return 0, false
}
