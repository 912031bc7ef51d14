package service

import (
	"context"
	"strings"

	"taskboard/internal/model"
	"taskboard/internal/store"
)

// CategoryService resolves categories by title within a user's store.
type CategoryService struct{}

func NewCategoryService() *CategoryService {
	return &CategoryService{}
}

// GetOrCreate returns the category titled title, ignoring case, and
// creates it when the user has none.
func (s *CategoryService) GetOrCreate(ctx context.Context, st *store.Store, title string) (*model.Category, error) {
	title = strings.TrimSpace(title)
	for _, c := range st.Categories() {
		if strings.EqualFold(c.Title, title) {
			return &c, nil
		}
	}
	return st.CreateCategory(ctx, model.CategoryInput{Title: title})
}
