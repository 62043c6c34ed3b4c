package store

import (
	"fmt"
	"regexp"
	"strings"
)

// Op is a comparison operator usable in a Query condition.
type Op string

const (
	OpEq Op = "="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Cond is a single field comparison.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents of one collection. The zero value of every optional
// part means "unconstrained". Queries are values; builder methods return copies.
type Query struct {
	collection string
	id         string
	conds      []Cond
	order      string
	desc       bool
	limit      int
}

// Collection starts a query over the named collection.
func Collection(name string) Query {
	return Query{collection: name}
}

// Name returns the collection the query reads.
func (q Query) Name() string { return q.collection }

// Doc restricts the query to the document with the given id.
func (q Query) Doc(id string) Query {
	q.id = id
	return q
}

// Where adds a field condition.
func (q Query) Where(field string, op Op, value any) Query {
	q.conds = append(q.conds[:len(q.conds):len(q.conds)], Cond{Field: field, Op: op, Value: value})
	return q
}

// Eq is shorthand for Where(field, OpEq, value).
func (q Query) Eq(field string, value any) Query {
	return q.Where(field, OpEq, value)
}

// OrderBy sorts results of Find and of a stream's initial snapshot.
func (q Query) OrderBy(field string, desc bool) Query {
	q.order = field
	q.desc = desc
	return q
}

// Limit caps the rows returned by Find and by a stream's initial snapshot.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// Matches reports whether d satisfies the query's id and field conditions.
func (q Query) Matches(d Doc) bool {
	if d.Collection != q.collection {
		return false
	}
	if q.id != "" && d.ID != q.id {
		return false
	}
	return condsMatch(q.conds, d.Fields)
}

func condsMatch(conds []Cond, fields map[string]any) bool {
	for _, c := range conds {
		got, ok := fields[c.Field]
		if !ok || got == nil {
			return false
		}
		cmp, ok := compare(got, c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case OpEq:
			if cmp != 0 {
				return false
			}
		case OpLt:
			if cmp >= 0 {
				return false
			}
		case OpLe:
			if cmp > 0 {
				return false
			}
		case OpGt:
			if cmp <= 0 {
				return false
			}
		case OpGe:
			if cmp < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compare mirrors SQLite's json_extract comparison closely enough for the
// value kinds documents hold: numbers and booleans compare numerically,
// strings lexically, and mixed kinds never compare.
func compare(a, b any) (int, bool) {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	af, ok := numeric(a)
	if !ok {
		return 0, false
	}
	bf, ok := numeric(b)
	if !ok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

func numeric(v any) (float64, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return toFloat(v)
}

var fieldRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validField(name string) error {
	if !fieldRegexp.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

func (q Query) sql() (string, []any, error) {
	if q.collection == "" {
		return "", nil, fmt.Errorf("query without collection")
	}
	var b strings.Builder
	b.WriteString(`SELECT id, data, updated_at FROM documents WHERE collection = ?`)
	args := []any{q.collection}

	if q.id != "" {
		b.WriteString(` AND id = ?`)
		args = append(args, q.id)
	}
	for _, c := range q.conds {
		if err := validField(c.Field); err != nil {
			return "", nil, err
		}
		switch c.Op {
		case OpEq, OpLt, OpLe, OpGt, OpGe:
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
		fmt.Fprintf(&b, ` AND json_extract(data, '$.%s') %s ?`, c.Field, c.Op)
		args = append(args, c.Value)
	}
	if q.order != "" {
		if err := validField(q.order); err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if q.desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, ` ORDER BY json_extract(data, '$.%s') %s, id ASC`, q.order, dir)
	}
	if q.limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, q.limit)
	}
	return b.String(), args, nil
}
