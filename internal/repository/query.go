package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/lalith-99/echocrm/internal/models"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Filter is one (field, operator, value) clause. Field uses the record's
// JSON name ("status", "reminder_date").
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Order is the sort of a query result.
type Order struct {
	Field string
	Desc  bool
}

// Query is what a replica asks the store for. Filters are ANDed. Limit 0
// means no limit.
type Query struct {
	Filters []Filter
	Order   Order
	Limit   int
}

// Where returns a copy of q with one more filter.
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderBy returns a copy of q sorted by field.
func (q Query) OrderBy(field string, desc bool) Query {
	q.Order = Order{Field: field, Desc: desc}
	return q
}

// WithLimit returns a copy of q capped at n rows.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// String renders q for logs and provenance.
func (q Query) String() string {
	var b strings.Builder
	for i, f := range q.Filters {
		if i > 0 {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s %s %v", f.Field, f.Op, f.Value)
	}
	if q.Order.Field != "" {
		dir := "asc"
		if q.Order.Desc {
			dir = "desc"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", q.Order.Field, dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return strings.TrimSpace(b.String())
}

// Plain converts the enum types of the models package to their underlying
// string so that stores compare and bind them like any other text.
func Plain(v any) any {
	switch t := v.(type) {
	case models.LeadStatus:
		return string(t)
	case models.Priority:
		return string(t)
	case models.RepeatInterval:
		return string(t)
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	}
	return v
}

// Compare orders two filter values of the same dynamic type. ok is false
// when the types differ or are not comparable.
func Compare(a, b any) (cmp int, ok bool) {
	a, b = Plain(a), Plain(b)
	switch av := a.(type) {
	case string:
		bv, isStr := b.(string)
		if !isStr {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, isBool := b.(bool)
		if !isBool {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		bv, isTime := b.(time.Time)
		if !isTime {
			return 0, false
		}
		return av.Compare(bv), true
	case int:
		bv, isInt := b.(int)
		if !isInt {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Match reports whether value satisfies f. A nil value (unset optional
// field) only matches != against a non-nil operand.
func (f Filter) Match(value any) bool {
	value = Plain(value)
	f.Value = Plain(f.Value)
	if value == nil || f.Value == nil {
		switch f.Op {
		case OpEq:
			return value == nil && f.Value == nil
		case OpNeq:
			return (value == nil) != (f.Value == nil)
		}
		return false
	}
	c, ok := Compare(value, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return c == 0
	case OpNeq:
		return c != 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	}
	return false
}
