// Package view derives the read models shown on the board, calendar,
// dashboard and list pages from store snapshots. Nothing here mutates.
package view

import (
	"taskboard/internal/model"
)

// Column is one status lane of the board.
type Column struct {
	Status model.Status `json:"status"`
	Label  string       `json:"label"`
	Tasks  []model.Task `json:"tasks"`
}

// Board groups tasks into one column per status, in workflow order. A
// non-empty projectID limits the board to that project.
func Board(tasks []model.Task, projectID string) []Column {
	columns := make([]Column, len(model.Statuses))
	index := make(map[model.Status]int, len(model.Statuses))
	for i, status := range model.Statuses {
		columns[i] = Column{Status: status, Label: status.Label(), Tasks: []model.Task{}}
		index[status] = i
	}
	for _, task := range tasks {
		if projectID != "" && (task.ProjectID == nil || *task.ProjectID != projectID) {
			continue
		}
		i, ok := index[task.Status]
		if !ok {
			continue
		}
		columns[i].Tasks = append(columns[i].Tasks, task)
	}
	return columns
}

// MoveTo builds the patch that drops task into the status column. ok is
// false when the task is already there.
func MoveTo(task model.Task, status model.Status) (patch model.TaskPatch, ok bool) {
	if task.Status == status {
		return model.TaskPatch{}, false
	}
	return model.TaskPatch{Status: model.SetTo(status)}, true
}
