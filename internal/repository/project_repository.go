package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/internal/model"
)

// ProjectRepository handles CRUD for projects. Only owners see and change
// their projects.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// joined preloads the category and the id/status list of child tasks.
func (r *ProjectRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Category").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "project_id", "status").Order("created_at ASC")
		})
}

func (r *ProjectRepository) ListOwned(ctx context.Context, ownerID string) ([]model.Project, error) {
	var projects []model.Project
	if err := r.joined(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	if err := r.joined(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) (*model.Project, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return r.FindByID(ctx, project.ID)
}

func (r *ProjectRepository) Update(ctx context.Context, ownerID, id string, cols map[string]any) (*model.Project, error) {
	res := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(cols)
	if res.Error != nil {
		return nil, fmt.Errorf("update project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update project %s: %w", id, ErrNotFound)
	}
	return r.FindByID(ctx, id)
}

// MembershipRepository records which users belong to which projects.
type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(ctx context.Context, member *model.ProjectMember) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}
