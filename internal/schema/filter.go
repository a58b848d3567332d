package schema

import (
	"net/url"
	"strings"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
)

// ParseFilter turns listing query parameters into a task filter. Empty
// parameters are ignored; an unparseable due date or an unknown sort field is
// a *QueryError.
func ParseFilter(q url.Values) (entity.TaskFilter, error) {
	f := entity.TaskFilter{
		Search:   q.Get("search"),
		Priority: entity.Priority(q.Get("priority")),
		Status:   entity.Status(q.Get("status")),
	}

	param, raw := "due_on", q.Get("due_on")
	if raw == "" {
		param, raw = "due_date", q.Get("due_date")
	}
	if raw != "" {
		due, err := entity.ParseDate(raw)
		if err != nil {
			return entity.TaskFilter{}, &QueryError{
				Param:   param,
				Message: "Invalid date format",
				Reason:  "Not a valid date. Expected YYYY-MM-DD.",
			}
		}
		f.DueOn = due
	}

	if sort := q.Get("sort"); sort != "" {
		key, ok := entity.SortKeys[sort]
		if !ok {
			return entity.TaskFilter{}, &QueryError{
				Param:   "sort",
				Message: "Invalid sort field",
				Reason:  "sort field needs to be one of: " + strings.Join(entity.SortKeyNames(), ", "),
			}
		}
		f.Sort = key
	}

	return f, nil
}
