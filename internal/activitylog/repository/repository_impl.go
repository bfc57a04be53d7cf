package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/pkg/db/option"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.ActivityLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListActivityFilter, page pagination.Pagination) ([]*domain.ActivityLog, error) {
	var entries []*domain.ActivityLog
	stmt := db.WithContext(ctx).
		Model(&domain.ActivityLog{}).
		Where("org_id = ?", orgID)
	if filter.EntityType != "" {
		stmt = stmt.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Action != "" {
		stmt = stmt.Where("action = ?", filter.Action)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
