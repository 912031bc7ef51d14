package view

import (
	"math"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/store"
)

// DayCount is the number of tasks completed on one day.
type DayCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Dashboard is the overview page.
type Dashboard struct {
	Stats          store.Stats   `json:"stats"`
	CompletionRate int           `json:"completion_rate"`
	Upcoming       []model.Task  `json:"upcoming"`
	Week           []DayCount    `json:"week"`
	ActiveProjects []ProjectCard `json:"active_projects"`
}

// ProjectCard is a project with its progress percentage.
type ProjectCard struct {
	model.Project
	Progress int `json:"progress"`
}

// BuildDashboard assembles the overview from a snapshot.
func BuildDashboard(snap store.Snapshot, now time.Time, loc *time.Location) Dashboard {
	return Dashboard{
		Stats:          snap.Stats,
		CompletionRate: CompletionRate(snap.Stats),
		Upcoming:       Upcoming(snap.Tasks, 5),
		Week:           WeeklyCompletions(snap.Tasks, now, loc),
		ActiveProjects: ActiveProjects(snap.Projects),
	}
}

// Upcoming returns at most n open tasks that have a deadline, soonest
// first.
func Upcoming(tasks []model.Task, n int) []model.Task {
	out := []model.Task{}
	for _, task := range tasks {
		if task.Deadline != nil && task.Status != model.StatusDone {
			out = append(out, task)
		}
	}
	SortByDeadline(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// WeeklyCompletions counts tasks completed on each day of the week that
// contains now. Weeks start on Sunday.
func WeeklyCompletions(tasks []model.Task, now time.Time, loc *time.Location) []DayCount {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, -int(local.Weekday()))
	week := make([]DayCount, 7)
	for i := range week {
		week[i].Date = start.AddDate(0, 0, i)
	}
	end := start.AddDate(0, 0, 7)
	for _, task := range tasks {
		if task.Status != model.StatusDone || task.CompletedAt == nil {
			continue
		}
		at := task.CompletedAt.In(loc)
		if at.Before(start) || !at.Before(end) {
			continue
		}
		week[at.Weekday()].Count++
	}
	return week
}

// CompletionRate is the rounded share of completed tasks as a percentage.
func CompletionRate(stats store.Stats) int {
	if stats.Total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(stats.Completed) / float64(stats.Total)))
}

// ActiveProjects returns the projects not yet completed, with progress.
func ActiveProjects(projects []model.Project) []ProjectCard {
	out := []ProjectCard{}
	for _, p := range projects {
		if p.Status == model.ProjectCompleted {
			continue
		}
		out = append(out, ProjectCard{Project: p, Progress: store.ProjectProgress(p)})
	}
	return out
}
