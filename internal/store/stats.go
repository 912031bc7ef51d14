package store

import (
	"math"
	"time"

	"taskboard/internal/model"
)

// Stats summarizes a task collection. It is derived, never stored.
type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
}

// ComputeStats counts tasks by status. A task is overdue when its deadline
// is strictly before now and it is not done.
func ComputeStats(tasks []model.Task, now time.Time) Stats {
	stats := Stats{Total: len(tasks)}
	for _, task := range tasks {
		switch task.Status {
		case model.StatusDone:
			stats.Completed++
		case model.StatusInProgress:
			stats.InProgress++
		}
		if task.Overdue(now) {
			stats.Overdue++
		}
	}
	return stats
}

// ProjectProgress is the rounded percentage of done tasks embedded in the
// project, 0 when it has none.
func ProjectProgress(project model.Project) int {
	if len(project.Tasks) == 0 {
		return 0
	}
	done := 0
	for _, task := range project.Tasks {
		if task.Status == model.StatusDone {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(project.Tasks))))
}
