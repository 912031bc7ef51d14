package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/internal/model"
)

// TaskRepository handles CRUD for tasks. Rows are visible to their creator
// and their assignee.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Category").
		Preload("Project").
		Preload("Assignee").
		Preload("Creator")
}

// ListForUser returns tasks the user created or is assigned to, newest first.
func (r *TaskRepository) ListForUser(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.joined(ctx).
		Where("created_by = ? OR assigned_to = ?", userID, userID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.joined(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// Create inserts task and returns the stored row with its joins. The
// project and category must belong to the creator, and a different assignee
// must be a member of the task's project.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkOwned(tx, task.CreatedBy, task.ProjectID, task.CategoryID); err != nil {
			return err
		}
		if err := checkAssignee(tx, task.CreatedBy, task.ProjectID, task.AssignedTo); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(task).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return r.FindByID(ctx, task.ID)
}

// Update applies cols to the task if userID created or is assigned to it.
// Changed references are checked the same way as in Create. Entering done
// keeps a completion stamp that is already stored.
func (r *TaskRepository) Update(ctx context.Context, userID, id string, cols map[string]any) (*model.Task, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Task
		if err := tx.Where("id = ? AND (created_by = ? OR assigned_to = ?)", id, userID, userID).
			First(&current).Error; err != nil {
			return err
		}

		var newProject, newCategory *string
		projectSet := false
		if v, ok := cols["project_id"]; ok {
			newProject, _ = v.(*string)
			projectSet = true
		}
		if v, ok := cols["category_id"]; ok {
			newCategory, _ = v.(*string)
		}
		if err := checkOwned(tx, userID, newProject, newCategory); err != nil {
			return err
		}

		project, assignee := current.ProjectID, current.AssignedTo
		if projectSet {
			project = newProject
		}
		v, assigneeSet := cols["assigned_to"]
		if assigneeSet {
			assignee, _ = v.(string)
		}
		if projectSet || assigneeSet {
			if err := checkAssignee(tx, current.CreatedBy, project, assignee); err != nil {
				return err
			}
		}

		if stamp, ok := cols["completed_at"].(*time.Time); ok && stamp != nil {
			cols["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", *stamp)
		}
		return tx.Model(&model.Task{}).Where("id = ?", id).Updates(cols).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("update task %s: %w", id, err)
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return r.FindByID(ctx, id)
}

// checkOwned rejects a project or category that userID does not own. Nil
// ids are not checked.
func checkOwned(tx *gorm.DB, userID string, projectID, categoryID *string) error {
	if projectID != nil {
		q := tx.Model(&model.Project{}).Where("id = ? AND owner_id = ?", *projectID, userID)
		if err := mustExist(q, "project", *projectID); err != nil {
			return err
		}
	}
	if categoryID != nil {
		q := tx.Model(&model.Category{}).Where("id = ? AND user_id = ?", *categoryID, userID)
		if err := mustExist(q, "category", *categoryID); err != nil {
			return err
		}
	}
	return nil
}

// checkAssignee allows the creator and members of the task's project.
func checkAssignee(tx *gorm.DB, creatorID string, projectID *string, assignee string) error {
	if assignee == "" || assignee == creatorID {
		return nil
	}
	if projectID == nil {
		return fmt.Errorf("assignee %s: %w", assignee, ErrNotFound)
	}
	q := tx.Model(&model.ProjectMember{}).Where("project_id = ? AND user_id = ?", *projectID, assignee)
	return mustExist(q, "assignee", assignee)
}

func mustExist(q *gorm.DB, what, id string) error {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

// Delete removes a task the user created or is assigned to.
func (r *TaskRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND (created_by = ? OR assigned_to = ?)", id, userID, userID).
		Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}
