package entity

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists priorities from least to most severe.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Status is the lifecycle stage of a task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists statuses in lifecycle order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

const (
	NameMinLength = 2
	NameMaxLength = 50
)

type Task struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Priority  Priority `json:"priority"`
	Status    Status   `json:"status"`
	DueOn     Date     `json:"due_on"`
	CreatedOn Date     `json:"created_on"`
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() < len(Priorities)
}

// Rank is the sort position of p; unknown values rank last.
func (p Priority) Rank() int {
	for i, v := range Priorities {
		if v == p {
			return i
		}
	}
	return len(Priorities)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.Rank() < len(Statuses)
}

// Rank is the sort position of s; unknown values rank last.
func (s Status) Rank() int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return len(Statuses)
}
