package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/maintenance/domain"
	"github.com/rentflow/rentflow/pkg/db/option"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, req *domain.MaintenanceRequest) error {
	return db.WithContext(ctx).Create(req).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.MaintenanceRequest, error) {
	var req domain.MaintenanceRequest
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListMaintenanceFilter, page pagination.Pagination) ([]*domain.MaintenanceRequest, error) {
	var requests []*domain.MaintenanceRequest
	stmt := db.WithContext(ctx).
		Model(&domain.MaintenanceRequest{}).
		Where("org_id = ?", orgID)
	if filter.PropertyID != 0 {
		stmt = stmt.Where("property_id = ?", filter.PropertyID)
	}
	if filter.UnitID != 0 {
		stmt = stmt.Where("unit_id = ?", filter.UnitID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		stmt = stmt.Where("priority = ?", filter.Priority)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error {
	result := db.WithContext(ctx).
		Model(&domain.MaintenanceRequest{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, orgID snowflake.ID, status string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.MaintenanceRequest{}).
		Where("org_id = ? AND status = ?", orgID, status).
		Count(&count).Error
	return count, err
}
