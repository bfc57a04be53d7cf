package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListActivityFilter struct {
	EntityType string
	Action     string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *ActivityLog) error
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListActivityFilter, page pagination.Pagination) ([]*ActivityLog, error)
}
