package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// defaultCategories are seeded for every new account.
var defaultCategories = []model.Category{
	{Title: "Work", Color: "#135bec", Icon: "work"},
	{Title: "Personal", Color: "#10b981", Icon: "person"},
}

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetOrCreate returns the user's category with that title, creating it
// from tmpl when missing.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, userID string, tmpl model.Category) (*model.Category, error) {
	var category model.Category
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND title = ?", userID, tmpl.Title).First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		category = tmpl
		category.ID = ""
		category.UserID = userID
		if err := db.Create(&category).Error; err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
		return &category, nil
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}
}

// EnsureDefaults seeds the default categories for a user.
func (r *CategoryRepository) EnsureDefaults(ctx context.Context, userID string) error {
	for _, tmpl := range defaultCategories {
		tmpl.IsDefault = true
		if _, err := r.GetOrCreate(ctx, userID, tmpl); err != nil {
			return err
		}
	}
	return nil
}

// ListByUser returns the user's categories, defaults first.
func (r *CategoryRepository) ListByUser(ctx context.Context, userID string) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) (*model.Category, error) {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}
