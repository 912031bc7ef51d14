package store

import (
	"time"

	"taskboard/internal/model"
)

// ApplyCompletion derives the completion timestamp from a status change.
// Entering done stamps now, leaving done clears it, and staying done keeps
// the existing stamp. A patch without a status is returned unchanged.
func ApplyCompletion(prev model.Task, patch model.TaskPatch, now time.Time) model.TaskPatch {
	patch.CompletedAt = model.Field[*time.Time]{}
	if !patch.Status.Set {
		return patch
	}
	switch {
	case patch.Status.Value != model.StatusDone:
		patch.CompletedAt = model.SetTo[*time.Time](nil)
	case prev.Status != model.StatusDone || prev.CompletedAt == nil:
		stamp := now
		patch.CompletedAt = model.SetTo(&stamp)
	}
	return patch
}

// syncProjectTasks keeps the status lists embedded in projects in step with
// a task change. before or after may be nil for inserts and deletes.
func syncProjectTasks(projects []model.Project, before, after *model.Task) []model.Project {
	out := clone(projects)
	for i := range out {
		p := &out[i]
		was := before != nil && before.ProjectID != nil && *before.ProjectID == p.ID
		is := after != nil && after.ProjectID != nil && *after.ProjectID == p.ID
		switch {
		case is:
			p.Tasks = upsertRef(p.Tasks, *after)
		case was:
			p.Tasks = Reconcile(p.Tasks, Mutation[model.Task]{Op: OpRemove, ID: before.ID})
		}
	}
	return out
}

func upsertRef(refs []model.Task, task model.Task) []model.Task {
	ref := model.Task{ID: task.ID, ProjectID: task.ProjectID, Status: task.Status}
	if _, ok := find(refs, task.ID); ok {
		return Reconcile(refs, Mutation[model.Task]{Op: OpReplace, ID: task.ID, Row: ref})
	}
	return Reconcile(refs, Mutation[model.Task]{Op: OpAppend, Row: ref})
}
