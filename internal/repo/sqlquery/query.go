// Package sqlquery composes the SQL statements shared by the task stores.
package sqlquery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
)

// Columns is the select list matching ScanTask order in every store.
const Columns = "id, name, priority, status, due_on, created_on"

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Dollar renders PostgreSQL placeholders ($1, $2, ...).
func Dollar(n int) string {
	return "$" + strconv.Itoa(n)
}

// Question renders SQLite placeholders.
func Question(int) string {
	return "?"
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuildList returns the SELECT statement and its arguments for f. Dates are
// bound as YYYY-MM-DD text so both dialects compare them as dates.
func BuildList(f entity.TaskFilter, ph Placeholder) (string, []any) {
	var (
		where []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		where = append(where, fmt.Sprintf(`LOWER(name) LIKE %s ESCAPE '\'`, bind(pattern)))
	}
	if f.Priority != "" {
		where = append(where, "priority = "+bind(string(f.Priority)))
	}
	if f.Status != "" {
		where = append(where, "status = "+bind(string(f.Status)))
	}
	if !f.DueOn.IsZero() {
		where = append(where, "due_on = "+bind(f.DueOn.String()))
	}

	var b strings.Builder
	b.WriteString("SELECT " + Columns + " FROM tasks")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	if expr := OrderBy(f.Sort); expr != "" {
		b.WriteString(expr)
		b.WriteString(", ")
	}
	b.WriteString("id")

	return b.String(), args
}

// OrderBy returns the ORDER BY expression of a sort key, or "" for SortNone
// and SortID (id is always the final tiebreaker). Tasks without a due date
// sort last on every dialect.
func OrderBy(key entity.SortKey) string {
	switch key {
	case entity.SortPriority:
		return rankCase("priority", entity.Priorities)
	case entity.SortStatus:
		return rankCase("status", entity.Statuses)
	case entity.SortName:
		return "name"
	case entity.SortDueOn:
		return "due_on IS NULL, due_on"
	case entity.SortCreatedOn:
		return "created_on"
	default:
		return ""
	}
}

// rankCase orders column by the position of its value in values; unknown
// values sort last.
func rankCase[T ~string](column string, values []T) string {
	var b strings.Builder
	b.WriteString("CASE")
	for i, v := range values {
		fmt.Fprintf(&b, " WHEN %s = '%s' THEN %d", column, strings.ReplaceAll(string(v), "'", "''"), i+1)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(values)+1)
	return b.String()
}
