package view

import (
	"sort"
	"strings"
	"time"

	"taskboard/internal/model"
)

// Sort orders of the task list.
const (
	SortDeadline = "deadline"
	SortPriority = "priority"
	SortCreated  = "created"
)

// Query filters and orders the task list. Zero fields match everything.
type Query struct {
	Search   string         `form:"q"`
	Status   model.Status   `form:"status"`
	Priority model.Priority `form:"priority"`
	Sort     string         `form:"sort"`
}

// Apply returns the matching tasks in the requested order. The input is
// not modified.
func (q Query) Apply(tasks []model.Task) []model.Task {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := []model.Task{}
	for _, task := range tasks {
		if q.Status != "" && task.Status != q.Status {
			continue
		}
		if q.Priority != "" && task.Priority != q.Priority {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(task.Name), needle) &&
			!strings.Contains(strings.ToLower(task.Summary), needle) {
			continue
		}
		out = append(out, task)
	}

	switch q.Sort {
	case SortDeadline:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].Deadline, out[j].Deadline
			if a == nil || b == nil {
				return a != nil
			}
			return a.Before(*b)
		})
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		})
	case SortCreated:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// StatusCounts counts tasks per status, with every status present.
func StatusCounts(tasks []model.Task) map[model.Status]int {
	counts := make(map[model.Status]int, len(model.Statuses))
	for _, status := range model.Statuses {
		counts[status] = 0
	}
	for _, task := range tasks {
		counts[task.Status]++
	}
	return counts
}

// ProjectStatusCounts counts projects per lifecycle state.
func ProjectStatusCounts(projects []model.Project) map[model.ProjectStatus]int {
	counts := make(map[model.ProjectStatus]int, len(model.ProjectStatuses))
	for _, status := range model.ProjectStatuses {
		counts[status] = 0
	}
	for _, p := range projects {
		counts[p.Status]++
	}
	return counts
}

// ProjectTasks returns the full task rows belonging to projectID.
func ProjectTasks(tasks []model.Task, projectID string) []model.Task {
	out := []model.Task{}
	for _, task := range tasks {
		if task.ProjectID != nil && *task.ProjectID == projectID {
			out = append(out, task)
		}
	}
	return out
}

// Overdue returns open tasks whose deadline is before now, oldest first.
func Overdue(tasks []model.Task, now time.Time) []model.Task {
	out := []model.Task{}
	for _, task := range tasks {
		if task.Overdue(now) {
			out = append(out, task)
		}
	}
	SortByDeadline(out)
	return out
}
