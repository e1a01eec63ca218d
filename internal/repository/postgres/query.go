package postgres

import (
	"fmt"
	"strings"

	"github.com/lalith-99/echocrm/internal/repository"
)

var sqlOps = map[repository.Op]string{
	repository.OpEq:  "=",
	repository.OpNeq: "<>",
	repository.OpLt:  "<",
	repository.OpLte: "<=",
	repository.OpGt:  ">",
	repository.OpGte: ">=",
}

// buildSelect turns a repository.Query into SQL for one owner-scoped table.
//
// Field names are checked against the collection's whitelist before they
// are interpolated; values always travel as bind parameters. The owner
// filter is $1.
func buildSelect(columns, table string, ownerID any, q repository.Query, allowed map[string]struct{}) (string, []any, error) {
	if err := repository.CheckQuery(q, allowed); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	args := []any{ownerID}
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE user_id = $1", columns, table)

	for _, f := range q.Filters {
		value := repository.Plain(f.Value)
		switch {
		case value == nil && f.Op == repository.OpEq:
			fmt.Fprintf(&b, " AND %s IS NULL", f.Field)
		case value == nil && f.Op == repository.OpNeq:
			fmt.Fprintf(&b, " AND %s IS NOT NULL", f.Field)
		case value == nil:
			// Ordering comparisons against NULL match nothing.
			b.WriteString(" AND FALSE")
		case f.Op == repository.OpNeq:
			// Unset fields count as "not equal", same as the memory store.
			args = append(args, value)
			fmt.Fprintf(&b, " AND (%s <> $%d OR %s IS NULL)", f.Field, len(args), f.Field)
		default:
			args = append(args, value)
			fmt.Fprintf(&b, " AND %s %s $%d", f.Field, sqlOps[f.Op], len(args))
		}
	}

	if q.Order.Field != "" {
		dir, nulls := "ASC", "NULLS FIRST"
		if q.Order.Desc {
			dir, nulls = "DESC", "NULLS LAST"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s %s, id ASC", q.Order.Field, dir, nulls)
	} else {
		b.WriteString(" ORDER BY id ASC")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args, nil
}
