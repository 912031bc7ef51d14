package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskboard/internal/model"
)

var errNotFound = errors.New("record not found")

// fakeBackend is an in-memory Backend with injectable failures.
type fakeBackend struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	calls int

	tasks       []model.Task
	projects    []model.Project
	categories  []model.Category
	memberships []model.ProjectMember

	listTasksErr    error
	listProjectsErr error
	listCatErr      error
	insertErr       error
	updateErr       error
	deleteErr       error
	membershipErr   error

	// beforeReturn runs after a mutation is persisted, before it returns.
	beforeReturn func()
}

func newFakeBackend(now time.Time) *fakeBackend {
	return &fakeBackend{now: now}
}

func (f *fakeBackend) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeBackend) hook() {
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
}

func (f *fakeBackend) ListTasks(_ context.Context, userID string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listTasksErr != nil {
		return nil, f.listTasksErr
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.CreatedBy == userID || t.AssignedTo == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeBackend) InsertTask(_ context.Context, task *model.Task) (*model.Task, error) {
	f.mu.Lock()
	f.calls++
	if f.insertErr != nil {
		f.mu.Unlock()
		return nil, f.insertErr
	}
	row := *task
	row.ID = f.nextID("task")
	row.CreatedAt = f.now
	f.tasks = append([]model.Task{row}, f.tasks...)
	f.mu.Unlock()
	f.hook()
	return &row, nil
}

func (f *fakeBackend) UpdateTask(_ context.Context, userID, id string, patch model.TaskPatch) (*model.Task, error) {
	f.mu.Lock()
	f.calls++
	if f.updateErr != nil {
		f.mu.Unlock()
		return nil, f.updateErr
	}
	for i, t := range f.tasks {
		if t.ID == id && (t.CreatedBy == userID || t.AssignedTo == userID) {
			f.tasks[i] = applyTaskPatch(t, patch)
			row := f.tasks[i]
			f.mu.Unlock()
			f.hook()
			return &row, nil
		}
	}
	f.mu.Unlock()
	return nil, errNotFound
}

func (f *fakeBackend) DeleteTask(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, t := range f.tasks {
		if t.ID == id && (t.CreatedBy == userID || t.AssignedTo == userID) {
			f.tasks = append(f.tasks[:i:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (f *fakeBackend) ListProjects(_ context.Context, userID string) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listProjectsErr != nil {
		return nil, f.listProjectsErr
	}
	var out []model.Project
	for _, p := range f.projects {
		if p.OwnerID != userID {
			continue
		}
		p.Tasks = nil
		for _, t := range f.tasks {
			if t.ProjectID != nil && *t.ProjectID == p.ID {
				p.Tasks = append(p.Tasks, model.Task{ID: t.ID, ProjectID: t.ProjectID, Status: t.Status})
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeBackend) InsertProject(_ context.Context, project *model.Project) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	row := *project
	row.ID = f.nextID("project")
	row.CreatedAt = f.now
	f.projects = append([]model.Project{row}, f.projects...)
	return &row, nil
}

func (f *fakeBackend) UpdateProject(_ context.Context, userID, id string, patch model.ProjectPatch) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i, p := range f.projects {
		if p.ID == id && p.OwnerID == userID {
			f.projects[i] = applyProjectPatch(p, patch)
			row := f.projects[i]
			return &row, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeBackend) InsertMembership(_ context.Context, member *model.ProjectMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.membershipErr != nil {
		return f.membershipErr
	}
	f.memberships = append(f.memberships, *member)
	return nil
}

func (f *fakeBackend) ListCategories(_ context.Context, userID string) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listCatErr != nil {
		return nil, f.listCatErr
	}
	var out []model.Category
	for _, c := range f.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBackend) InsertCategory(_ context.Context, category *model.Category) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	row := *category
	row.ID = f.nextID("category")
	f.categories = append(f.categories, row)
	return &row, nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func applyTaskPatch(t model.Task, p model.TaskPatch) model.Task {
	if p.Name.Set {
		t.Name = p.Name.Value
	}
	if p.Summary.Set {
		t.Summary = p.Summary.Value
	}
	if p.Status.Set {
		t.Status = p.Status.Value
	}
	if p.Priority.Set {
		t.Priority = p.Priority.Value
	}
	if p.Deadline.Set {
		t.Deadline = p.Deadline.Value
	}
	if p.CategoryID.Set {
		t.CategoryID = p.CategoryID.Value
	}
	if p.ProjectID.Set {
		t.ProjectID = p.ProjectID.Value
	}
	if p.AssignedTo.Set {
		t.AssignedTo = p.AssignedTo.Value
	}
	if p.CompletedAt.Set {
		t.CompletedAt = p.CompletedAt.Value
	}
	return t
}

func applyProjectPatch(p model.Project, patch model.ProjectPatch) model.Project {
	if patch.Name.Set {
		p.Name = patch.Name.Value
	}
	if patch.Description.Set {
		p.Description = patch.Description.Value
	}
	if patch.CategoryID.Set {
		p.CategoryID = patch.CategoryID.Value
	}
	if patch.StartDate.Set {
		p.StartDate = patch.StartDate.Value
	}
	if patch.EndDate.Set {
		p.EndDate = patch.EndDate.Value
	}
	if patch.Color.Set {
		p.Color = patch.Color.Value
	}
	if patch.IsTeam.Set {
		p.IsTeam = patch.IsTeam.Value
	}
	if patch.Status.Set {
		p.Status = patch.Status.Value
	}
	return p
}

func (f *fakeBackend) taskName(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}
