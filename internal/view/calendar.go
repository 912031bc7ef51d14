package view

import (
	"sort"
	"time"

	"taskboard/internal/model"
)

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date  time.Time    `json:"date"`
	Tasks []model.Task `json:"tasks"`
}

// Month returns one entry per day of the month with the tasks whose
// deadline falls on it in loc, earliest deadline first.
func Month(tasks []model.Task, year int, month time.Month, loc *time.Location) []CalendarDay {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := first.AddDate(0, 1, -1).Day()
	out := make([]CalendarDay, days)
	for i := range out {
		out[i] = CalendarDay{Date: first.AddDate(0, 0, i), Tasks: []model.Task{}}
	}
	for _, task := range tasks {
		if task.Deadline == nil {
			continue
		}
		d := task.Deadline.In(loc)
		if d.Year() != year || d.Month() != month {
			continue
		}
		out[d.Day()-1].Tasks = append(out[d.Day()-1].Tasks, task)
	}
	for i := range out {
		SortByDeadline(out[i].Tasks)
	}
	return out
}

// Day returns the tasks due on the calendar day of date in loc.
func Day(tasks []model.Task, date time.Time, loc *time.Location) []model.Task {
	y, m, d := date.In(loc).Date()
	out := []model.Task{}
	for _, task := range tasks {
		if task.Deadline == nil {
			continue
		}
		ty, tm, td := task.Deadline.In(loc).Date()
		if ty == y && tm == m && td == d {
			out = append(out, task)
		}
	}
	SortByDeadline(out)
	return out
}

// SortByDeadline orders tasks soonest deadline first, in place. Tasks
// without a deadline keep their relative order after the rest.
func SortByDeadline(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].Deadline, tasks[j].Deadline
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Before(*b)
	})
}
