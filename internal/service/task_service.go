package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/store"
	"taskboard/internal/view"
)

// QuickTask is the data entered in a single chat line.
type QuickTask struct {
	Name     string
	Deadline *time.Time
	Category string
}

// ParseQuickTask reads "name [| YYYY-MM-DD [| category]]". The deadline
// falls at the end of that day in loc.
func ParseQuickTask(line string, loc *time.Location) (QuickTask, error) {
	parts := strings.Split(line, "|")
	in := QuickTask{Name: strings.TrimSpace(parts[0])}
	if in.Name == "" {
		return QuickTask{}, errors.New("task name is required")
	}
	if len(parts) > 1 {
		if raw := strings.TrimSpace(parts[1]); raw != "" {
			day, err := time.ParseInLocation("2006-01-02", raw, loc)
			if err != nil {
				return QuickTask{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
			}
			deadline := day.Add(24*time.Hour - time.Second)
			in.Deadline = &deadline
		}
	}
	if len(parts) > 2 {
		in.Category = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		return QuickTask{}, errors.New("too many fields, expected name | date | category")
	}
	return in, nil
}

// TaskService runs chat task commands against a user's store.
type TaskService struct {
	categories *CategoryService
}

func NewTaskService(categories *CategoryService) *TaskService {
	return &TaskService{categories: categories}
}

func (s *TaskService) CreateTask(ctx context.Context, st *store.Store, in QuickTask) (*model.Task, error) {
	input := model.TaskInput{Name: in.Name, Deadline: in.Deadline}
	if in.Category != "" {
		category, err := s.categories.GetOrCreate(ctx, st, in.Category)
		if err != nil {
			return nil, err
		}
		input.CategoryID = &category.ID
	}
	return st.CreateTask(ctx, input)
}

// Open lists the tasks that are not done, soonest deadline first. The
// numbering of this list is what chat commands refer to.
func (s *TaskService) Open(st *store.Store) []model.Task {
	open := view.Query{Sort: view.SortDeadline}.Apply(st.Tasks())
	out := open[:0]
	for _, task := range open {
		if task.Status != model.StatusDone {
			out = append(out, task)
		}
	}
	return out
}

// Pick returns the n-th (1-based) task of Open.
func (s *TaskService) Pick(st *store.Store, n int) (model.Task, error) {
	open := s.Open(st)
	if n < 1 || n > len(open) {
		return model.Task{}, fmt.Errorf("no task #%d, you have %d open", n, len(open))
	}
	return open[n-1], nil
}

// CompleteTask marks the n-th open task done.
func (s *TaskService) CompleteTask(ctx context.Context, st *store.Store, n int) (*model.Task, error) {
	task, err := s.Pick(st, n)
	if err != nil {
		return nil, err
	}
	return st.UpdateTask(ctx, task.ID, model.TaskPatch{Status: model.SetTo(model.StatusDone)})
}

// DeleteTask removes the n-th open task.
func (s *TaskService) DeleteTask(ctx context.Context, st *store.Store, n int) (*model.Task, error) {
	task, err := s.Pick(st, n)
	if err != nil {
		return nil, err
	}
	if err := st.DeleteTask(ctx, task.ID); err != nil {
		return nil, err
	}
	return &task, nil
}
