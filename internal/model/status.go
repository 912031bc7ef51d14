package model

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
)

// Statuses lists task states in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusInReview, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

// Label returns the column heading used by board views.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To-Do"
	case StatusInProgress:
		return "In Progress"
	case StatusInReview:
		return "In Review"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Rank is the index of p in Priorities, or -1 for unknown values.
func (p Priority) Rank() int {
	for i, candidate := range Priorities {
		if candidate == p {
			return i
		}
	}
	return -1
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectInReview  ProjectStatus = "in_review"
	ProjectCompleted ProjectStatus = "completed"
	ProjectDelayed   ProjectStatus = "delayed"
	ProjectOnHold    ProjectStatus = "on_hold"
)

var ProjectStatuses = []ProjectStatus{ProjectActive, ProjectInReview, ProjectCompleted, ProjectDelayed, ProjectOnHold}

func (s ProjectStatus) Valid() bool {
	for _, candidate := range ProjectStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// RoleOwner is the membership role of a project's creator.
const RoleOwner = "owner"
