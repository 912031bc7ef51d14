package store

import (
	"context"

	"taskboard/internal/model"
)

// TaskBackend persists tasks. Implementations enforce that userID is the
// creator or the assignee of any row they touch.
type TaskBackend interface {
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	InsertTask(ctx context.Context, task *model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, userID, id string, patch model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error
}

// ProjectBackend persists projects and their memberships.
type ProjectBackend interface {
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	InsertProject(ctx context.Context, project *model.Project) (*model.Project, error)
	UpdateProject(ctx context.Context, userID, id string, patch model.ProjectPatch) (*model.Project, error)
	InsertMembership(ctx context.Context, member *model.ProjectMember) error
}

// CategoryBackend persists categories.
type CategoryBackend interface {
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	InsertCategory(ctx context.Context, category *model.Category) (*model.Category, error)
}

// Backend is the persistence collaborator of a Store.
type Backend interface {
	TaskBackend
	ProjectBackend
	CategoryBackend
}

// Identity reports the signed-in user, or nil when nobody is signed in.
type Identity interface {
	CurrentUser() *model.User
}

// IdentityFunc adapts a function to Identity.
type IdentityFunc func() *model.User

func (f IdentityFunc) CurrentUser() *model.User { return f() }
