package repository

import "gorm.io/gorm"

// Errors callers can match with errors.Is without importing gorm.
var (
	ErrNotFound  = gorm.ErrRecordNotFound
	ErrDuplicate = gorm.ErrDuplicatedKey
)
