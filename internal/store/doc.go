package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is returned when a document addressed by id does not exist.
var ErrNotFound = errors.New("document not found")

// ErrConditionFailed is returned by UpdateIf when the stored document does not
// satisfy the given preconditions.
var ErrConditionFailed = errors.New("document precondition failed")

// Doc is a single JSON document within a collection.
type Doc struct {
	Collection string
	ID         string
	Fields     map[string]any
	UpdatedAt  int64
}

// String returns the named field as a string, or "" when absent or not a string.
func (d Doc) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Int64 returns the named numeric field, or 0.
func (d Doc) Int64(field string) int64 {
	f, ok := toFloat(d.Fields[field])
	if !ok {
		return 0
	}
	return int64(f)
}

// Bool returns the named field as a bool. Numeric 0/1 are accepted.
func (d Doc) Bool(field string) bool {
	switch v := d.Fields[field].(type) {
	case bool:
		return v
	default:
		f, ok := toFloat(v)
		return ok && f != 0
	}
}

// Has reports whether the field is present (even if null).
func (d Doc) Has(field string) bool {
	_, ok := d.Fields[field]
	return ok
}

func decodeFields(raw string) (map[string]any, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

func encodeFields(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

type increment struct{ by int64 }

type deleteField struct{}

// Increment is a patch value that adds n to the stored numeric field
// (a missing field counts as 0) inside the write transaction.
func Increment(n int64) any { return increment{by: n} }

// DeleteField is a patch value that removes the field from the document.
var DeleteField any = deleteField{}

func applyPatch(fields map[string]any, patch map[string]any) error {
	for k, v := range patch {
		if err := validField(k); err != nil {
			return err
		}
		switch p := v.(type) {
		case increment:
			cur, _ := toFloat(fields[k])
			fields[k] = int64(cur) + p.by
		case deleteField:
			delete(fields, k)
		default:
			fields[k] = v
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return float64(n), true
		}
		return float64(int64(n)), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
