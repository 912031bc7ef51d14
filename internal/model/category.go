package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category labels tasks and projects (work, personal, study, etc.).
type Category struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index;uniqueIndex:idx_user_category_title" json:"user_id"`
	Title     string    `gorm:"uniqueIndex:idx_user_category_title" json:"title"`
	Color     string    `json:"color_code"`
	Icon      string    `json:"icon"`
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c Category) EntityID() string { return c.ID }

// CategoryInput is the data a user supplies when creating a category.
type CategoryInput struct {
	Title string `json:"title"`
	Color string `json:"color_code"`
	Icon  string `json:"icon"`
}
