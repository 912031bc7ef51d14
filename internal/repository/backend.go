package repository

import (
	"context"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// Backend exposes the repositories as the persistence collaborator of the
// in-memory store.
type Backend struct {
	Users       *UserRepository
	Tasks       *TaskRepository
	Projects    *ProjectRepository
	Memberships *MembershipRepository
	Categories  *CategoryRepository
}

func NewBackend(db *gorm.DB) *Backend {
	return &Backend{
		Users:       NewUserRepository(db),
		Tasks:       NewTaskRepository(db),
		Projects:    NewProjectRepository(db),
		Memberships: NewMembershipRepository(db),
		Categories:  NewCategoryRepository(db),
	}
}

func (b *Backend) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	return b.Tasks.ListForUser(ctx, userID)
}

func (b *Backend) InsertTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	return b.Tasks.Create(ctx, task)
}

func (b *Backend) UpdateTask(ctx context.Context, userID, id string, patch model.TaskPatch) (*model.Task, error) {
	return b.Tasks.Update(ctx, userID, id, patch.Columns())
}

func (b *Backend) DeleteTask(ctx context.Context, userID, id string) error {
	return b.Tasks.Delete(ctx, userID, id)
}

func (b *Backend) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	return b.Projects.ListOwned(ctx, userID)
}

func (b *Backend) InsertProject(ctx context.Context, project *model.Project) (*model.Project, error) {
	return b.Projects.Create(ctx, project)
}

func (b *Backend) UpdateProject(ctx context.Context, userID, id string, patch model.ProjectPatch) (*model.Project, error) {
	return b.Projects.Update(ctx, userID, id, patch.Columns())
}

func (b *Backend) InsertMembership(ctx context.Context, member *model.ProjectMember) error {
	return b.Memberships.Create(ctx, member)
}

func (b *Backend) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	return b.Categories.ListByUser(ctx, userID)
}

func (b *Backend) InsertCategory(ctx context.Context, category *model.Category) (*model.Category, error) {
	return b.Categories.Create(ctx, category)
}
