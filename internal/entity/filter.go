package entity

import (
	"net/url"
	"sort"
)

// SortKey identifies an orderable task field.
type SortKey string

const (
	SortNone      SortKey = ""
	SortID        SortKey = "id"
	SortName      SortKey = "name"
	SortPriority  SortKey = "priority"
	SortStatus    SortKey = "status"
	SortDueOn     SortKey = "due_on"
	SortCreatedOn SortKey = "created_on"
)

// SortKeys maps every accepted ?sort= value to the field it orders by.
var SortKeys = map[string]SortKey{
	"id":         SortID,
	"name":       SortName,
	"priority":   SortPriority,
	"status":     SortStatus,
	"due_on":     SortDueOn,
	"due_date":   SortDueOn,
	"created_on": SortCreatedOn,
}

// SortKeyNames returns the accepted sort values in alphabetical order.
func SortKeyNames() []string {
	names := make([]string, 0, len(SortKeys))
	for name := range SortKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TaskFilter narrows and orders a task listing. Zero-valued fields do not
// restrict the result.
type TaskFilter struct {
	Search   string
	Priority Priority
	Status   Status
	DueOn    Date
	Sort     SortKey
}

// CacheKey is a stable representation of the filter used to key cached listings.
func (f TaskFilter) CacheKey() string {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Priority != "" {
		v.Set("priority", string(f.Priority))
	}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if !f.DueOn.IsZero() {
		v.Set("due_on", f.DueOn.String())
	}
	if f.Sort != SortNone {
		v.Set("sort", string(f.Sort))
	}
	// Encode sorts by key.
	return v.Encode()
}
