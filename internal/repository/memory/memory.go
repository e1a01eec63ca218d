// Package memory is an in-process document store. It backs STORE_BACKEND=memory
// and the package tests of everything above the repository layer.
package memory

import (
	"cmp"
	"slices"
	"time"

	"github.com/lalith-99/echocrm/internal/repository"
)

// Clock supplies store time for created_at, updated_at and friends.
type Clock func() time.Time

// run filters, orders and limits rows the way the Postgres stores do with SQL.
func run[T any](rows []T, q repository.Query, value func(T, string) any, id func(T) string) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		keep := true
		for _, f := range q.Filters {
			if !f.Match(value(row, f.Field)) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}

	slices.SortStableFunc(out, func(a, b T) int {
		if q.Order.Field != "" {
			c := compareNullable(value(a, q.Order.Field), value(b, q.Order.Field))
			if q.Order.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(id(a), id(b))
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// compareNullable sorts nil before any value, like an ascending NULLS FIRST.
func compareNullable(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	c, _ := repository.Compare(a, b)
	return c
}

func ptr[T any](v T) *T { return &v }

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	return ptr(*p)
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
