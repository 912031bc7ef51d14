package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskboard/internal/model"
)

func TestComputeStats(t *testing.T) {
	past := testNow.Add(-time.Minute)
	future := testNow.Add(time.Minute)
	exact := testNow

	tasks := []model.Task{
		{ID: "1", Status: model.StatusDone, Deadline: &past},
		{ID: "2", Status: model.StatusInProgress, Deadline: &past},
		{ID: "3", Status: model.StatusTodo, Deadline: &future},
		{ID: "4", Status: model.StatusInReview},
		{ID: "5", Status: model.StatusTodo, Deadline: &exact},
		{ID: "6", Status: model.StatusInProgress},
	}

	got := ComputeStats(tasks, testNow)
	assert.Equal(t, Stats{Total: 6, Completed: 1, InProgress: 2, Overdue: 1}, got)
}

func TestComputeStatsEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil, testNow))
}

func TestProjectProgress(t *testing.T) {
	tasks := func(done, total int) []model.Task {
		out := make([]model.Task, total)
		for i := range out {
			out[i].Status = model.StatusTodo
			if i < done {
				out[i].Status = model.StatusDone
			}
		}
		return out
	}

	tests := []struct {
		name        string
		done, total int
		want        int
	}{
		{name: "no tasks", done: 0, total: 0, want: 0},
		{name: "none done", done: 0, total: 4, want: 0},
		{name: "all done", done: 3, total: 3, want: 100},
		{name: "one third", done: 1, total: 3, want: 33},
		{name: "two thirds", done: 2, total: 3, want: 67},
		{name: "half rounds up", done: 1, total: 8, want: 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectProgress(model.Project{Tasks: tasks(tt.done, tt.total)}))
		})
	}
}

func TestApplyCompletion(t *testing.T) {
	stamp := testNow.Add(-time.Hour)

	t.Run("no status leaves completion alone", func(t *testing.T) {
		patch := ApplyCompletion(model.Task{Status: model.StatusDone, CompletedAt: &stamp}, model.TaskPatch{Name: model.SetTo("x")}, testNow)
		assert.False(t, patch.CompletedAt.Set)
	})
	t.Run("entering done stamps now", func(t *testing.T) {
		patch := ApplyCompletion(model.Task{Status: model.StatusTodo}, model.TaskPatch{Status: model.SetTo(model.StatusDone)}, testNow)
		assert.True(t, patch.CompletedAt.Set)
		assert.Equal(t, testNow, *patch.CompletedAt.Value)
	})
	t.Run("leaving done clears", func(t *testing.T) {
		patch := ApplyCompletion(model.Task{Status: model.StatusDone, CompletedAt: &stamp}, model.TaskPatch{Status: model.SetTo(model.StatusTodo)}, testNow)
		assert.True(t, patch.CompletedAt.Set)
		assert.Nil(t, patch.CompletedAt.Value)
	})
	t.Run("client supplied stamp is ignored", func(t *testing.T) {
		patch := model.TaskPatch{CompletedAt: model.SetTo(&stamp)}
		patch = ApplyCompletion(model.Task{}, patch, testNow)
		assert.False(t, patch.CompletedAt.Set)
	})
}
